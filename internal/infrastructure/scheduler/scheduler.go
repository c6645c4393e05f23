package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type Scheduler struct {
	cron   *cron.Cron
	logger Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// cronLogger routes cron's own errors, including recovered job panics, to
// the application log. Informational scheduling chatter is dropped.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(string, ...interface{}) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if len(keysAndValues) == 0 {
		l.logger.Errorf("Scheduler %s: %v", msg, err)
		return
	}
	l.logger.Errorf("Scheduler %s: %v %v", msg, err, keysAndValues)
}

// DailySpec returns the six-field cron expression firing once a day at
// hour:minute.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}

// AddDaily runs job every day at hour:minute local time.
func (s *Scheduler) AddDaily(name string, hour, minute int, job func(context.Context) error) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid daily time %02d:%02d", hour, minute)
	}
	return s.AddJob(name, DailySpec(hour, minute), job)
}

func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil {
			s.logger.Errorf("Scheduled job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Next returns when the earliest scheduled job fires next, or the zero time
// when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, entry := range s.cron.Entries() {
		if next.IsZero() || (!entry.Next.IsZero() && entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if next := s.Next(); !next.IsZero() {
		s.logger.Infof("Scheduler started, next run at %s", next.Format(time.RFC3339))
	}
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// NextDaily returns the next occurrence of hour:minute after now: today when
// that time has not passed yet, tomorrow otherwise.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
