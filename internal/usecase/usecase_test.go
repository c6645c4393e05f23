package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caminhar/backupctl/internal/adapter/auditlog"
	"github.com/caminhar/backupctl/internal/adapter/storage"
	"github.com/caminhar/backupctl/internal/domain"
)

const (
	testPrefix       = "caminhar-pg-backup"
	testSafetyPrefix = "caminhar-pg-pre-restore"
)

type silentLogger struct{}

func (silentLogger) Infof(string, ...interface{})  {}
func (silentLogger) Errorf(string, ...interface{}) {}
func (silentLogger) Warnf(string, ...interface{})  {}

// fakeDatabase writes real artifacts and records every call in order.
type fakeDatabase struct {
	mu      sync.Mutex
	calls   []string
	dumpErr error
	loadErr error
}

func (f *fakeDatabase) Dump(_ context.Context, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "dump:"+filepath.Base(destPath))
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(destPath, []byte("-- dump\n"), 0o640)
}

// Load opens the artifact like the real loader, so a file deleted before
// the load fails it.
func (f *fakeDatabase) Load(_ context.Context, sourcePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "load:"+filepath.Base(sourcePath))
	if f.loadErr != nil {
		return f.loadErr
	}
	file, err := os.Open(sourcePath)
	if err != nil {
		return &domain.LoadError{Err: fmt.Errorf("open artifact: %w", err)}
	}
	return file.Close()
}

func (f *fakeDatabase) GetType() string           { return "fake" }
func (f *fakeDatabase) Ping(context.Context) error { return nil }

func (f *fakeDatabase) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) > len(kind) && c[:len(kind)+1] == kind+":" {
			n++
		}
	}
	return n
}

// flakyStorage fails Delete for the listed filenames.
type flakyStorage struct {
	*storage.LocalStorage
	failDelete map[string]bool
}

func (s *flakyStorage) Delete(filename string) error {
	if s.failDelete[filename] {
		return errors.New("permission denied")
	}
	return s.LocalStorage.Delete(filename)
}

// spyRetention counts how often retention was triggered.
type spyRetention struct {
	calls int
}

func (s *spyRetention) Enforce(context.Context, string, ...string) error {
	s.calls++
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context) (func(), error) {
	return nil, domain.ErrOperationInProgress
}

type freeLocker struct {
	acquired, released int
}

func (l *freeLocker) Acquire(context.Context) (func(), error) {
	l.acquired++
	return func() { l.released++ }, nil
}

// tickingClock returns a new second on every call so artifacts never collide.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := current
		current = current.Add(time.Second)
		return t
	}
}

type fixture struct {
	dir       string
	db        *fakeDatabase
	storage   *storage.LocalStorage
	audit     *auditlog.FileLog
	notices   *recordingNotifier
	retention *Retention
	backup    *Backup
	restore   *Restore
}

func newFixture(dir string, policies map[string]int) *fixture {
	f := &fixture{
		dir:     dir,
		db:      &fakeDatabase{},
		storage: storage.NewLocal(filepath.Join(dir, "backups")),
		audit:   auditlog.NewFile(filepath.Join(dir, "backups", "backup.log"), auditlog.DefaultMaxEntries),
		notices: &recordingNotifier{},
	}
	f.retention = NewRetention(f.storage, f.audit, silentLogger{}, policies, nil)
	f.backup = NewBackup(f.db, f.storage, f.audit, f.retention, silentLogger{}, f.notices, nil, testPrefix)
	f.backup.now = tickingClock(time.Date(2026, time.March, 1, 3, 0, 0, 0, time.UTC))
	f.restore = NewRestore(f.db, f.storage, f.audit, f.backup, silentLogger{}, f.notices, nil, testSafetyPrefix, policies[testSafetyPrefix])
	return f
}

func (f *fixture) seed(names ...string) {
	if err := f.storage.Ensure(); err != nil {
		panic(err)
	}
	for _, name := range names {
		if err := os.WriteFile(f.storage.Path(name), []byte("x"), 0o640); err != nil {
			panic(err)
		}
	}
}

func (f *fixture) statuses() []domain.Status {
	entries, err := f.audit.ReadAll()
	if err != nil {
		panic(err)
	}
	out := make([]domain.Status, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Status)
	}
	return out
}

func dailyArtifacts(prefix string, days int) []string {
	names := make([]string, 0, days)
	for d := 1; d <= days; d++ {
		names = append(names, fmt.Sprintf("%s_2026-01-%02d_03-00-00.sql.gz", prefix, d))
	}
	return names
}

func remaining(s *storage.LocalStorage, prefix string) []string {
	artifacts, err := s.List(prefix, domain.ArtifactExt)
	if err != nil {
		panic(err)
	}
	domain.SortNewestFirst(artifacts)
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Filename)
	}
	return names
}
