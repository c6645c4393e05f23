package domain

type Status string

const (
	StatusSuccess        Status = "SUCCESS"
	StatusError          Status = "ERROR"
	StatusInfo           Status = "INFO"
	StatusRestoreSuccess Status = "RESTORE_SUCCESS"
	StatusRestoreError   Status = "RESTORE_ERROR"
)

// LogEntry is one line of the audit trail.
type LogEntry struct {
	Timestamp string
	Status    Status
	Message   string
}

type AuditLog interface {
	Append(status Status, message string) error
	ReadAll() ([]LogEntry, error)
}
