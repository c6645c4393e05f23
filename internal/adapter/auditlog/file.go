package auditlog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/caminhar/backupctl/internal/domain"
)

const (
	DefaultMaxEntries = 100
	timeLayout        = "2006-01-02 15:04:05"
)

var linePattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] \[([A-Z_]+)\] (.*)$`)

// FileLog is the operator-facing audit trail: one line per event, bounded
// to the most recent maxEntries lines. Appends from one process are
// serialized; the cross-process operation lock covers the rest.
type FileLog struct {
	path       string
	maxEntries int
	now        func() time.Time

	mu sync.Mutex
}

func NewFile(path string, maxEntries int) *FileLog {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &FileLog{path: path, maxEntries: maxEntries, now: time.Now}
}

// Append writes `[<timestamp>] [<status>] <message>` and truncates the file
// to its tail.
func (l *FileLog) Append(status domain.Status, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	line := formatLine(l.now(), status, message)

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	if _, err := file.WriteString(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}

	return l.truncateLocked()
}

func (l *FileLog) truncateLocked() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	lines := splitLines(data)
	if len(lines) <= l.maxEntries {
		return nil
	}
	lines = lines[len(lines)-l.maxEntries:]

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create audit log temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to rewrite audit log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to rewrite audit log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace audit log: %w", err)
	}

	return nil
}

// ReadAll parses the log. Lines that do not match the entry format are
// skipped; a missing file is an empty log.
func (l *FileLog) ReadAll() ([]domain.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.LogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	entries := make([]domain.LogEntry, 0, l.maxEntries)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if entry, ok := parseLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	return entries, nil
}

func formatLine(now time.Time, status domain.Status, message string) string {
	// Keep one entry per line.
	message = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(message)
	return fmt.Sprintf("[%s] [%s] %s\n", now.Format(timeLayout), status, message)
}

func parseLine(line string) (domain.LogEntry, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return domain.LogEntry{}, false
	}
	return domain.LogEntry{Timestamp: m[1], Status: domain.Status(m[2]), Message: m[3]}, true
}

func splitLines(data []byte) []string {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return nil
	}
	return strings.Split(string(data), "\n")
}
