package domain

type RestoreState int

const (
	RestoreIdle RestoreState = iota
	RestoreVerifyingArtifact
	RestoreSnapshotting
	RestoreRestoring
	RestoreDone
	RestoreAborted
)

func (s RestoreState) String() string {
	switch s {
	case RestoreIdle:
		return "idle"
	case RestoreVerifyingArtifact:
		return "verifying-artifact"
	case RestoreSnapshotting:
		return "snapshotting-current-state"
	case RestoreRestoring:
		return "restoring"
	case RestoreDone:
		return "done"
	case RestoreAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RestoreResult describes how far a restore got. Snapshot is empty unless
// the safety snapshot was written.
type RestoreResult struct {
	Filename string
	Snapshot string
	State    RestoreState
}
