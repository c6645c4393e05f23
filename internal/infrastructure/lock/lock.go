package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"

	"github.com/caminhar/backupctl/internal/domain"
)

const pollDelay = 100 * time.Millisecond

// Machine is a host-wide named lock. Every backup and restore process on the
// host contends for the same name, so a manual restore can never overlap a
// scheduled backup.
type Machine struct {
	name    string
	timeout time.Duration
	clock   clock.Clock
}

// NewMachine returns a lock that waits at most timeout for the holder to
// release. A non-positive timeout makes a single attempt. Names must be
// lowercase letters, digits and hyphens.
func NewMachine(name string, timeout time.Duration) *Machine {
	// mutex.Spec treats a zero Timeout as no limit.
	if timeout <= 0 {
		timeout = pollDelay
	}
	return &Machine{
		name:    name,
		timeout: timeout,
		clock:   clock.WallClock,
	}
}

func (m *Machine) Acquire(ctx context.Context) (func(), error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    m.name,
		Clock:   m.clock,
		Delay:   pollDelay,
		Timeout: m.timeout,
		Cancel:  ctx.Done(),
	})
	switch {
	case err == nil:
		return releaser.Release, nil
	case errors.Is(err, mutex.ErrTimeout):
		return nil, domain.ErrOperationInProgress
	case errors.Is(err, mutex.ErrCancelled):
		return nil, fmt.Errorf("acquire lock %s: %w", m.name, ctx.Err())
	default:
		return nil, fmt.Errorf("acquire lock %s: %w", m.name, err)
	}
}
