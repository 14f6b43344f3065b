package cron

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/pkg/logger/types"
)

const (
	DefaultSchedule = "@every 1m"
	DefaultLockTTL  = 10 * time.Minute

	lockName = "notifications:run-all"
)

type sweeper interface {
	RunAll(ctx context.Context, dry bool)
}

// Locker serializes sweeps across processes
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context)) error
}

// Trigger runs a full notification sweep on a cron schedule.
//
// A sweep never overlaps with itself inside the process; with a Locker set it
// also never overlaps with sweeps of other processes sharing the lock.
type Trigger struct {
	cron    *cron.Cron
	sweeper sweeper
	locker  Locker

	schedule string
	lockTTL  time.Duration
	dryRun   bool

	ctx    context.Context
	cancel context.CancelFunc
	logger *types.Logger
}

type Option func(*Trigger)

// WithCron injects a preconfigured cron instance
func WithCron(c *cron.Cron) Option {
	return func(t *Trigger) {
		if c != nil {
			t.cron = c
		}
	}
}

func WithSchedule(spec string) Option {
	return func(t *Trigger) {
		if spec != "" {
			t.schedule = spec
		}
	}
}

// WithLocker guards every sweep with l for at most ttl
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(t *Trigger) {
		t.locker = l
		if ttl > 0 {
			t.lockTTL = ttl
		}
	}
}

func WithDryRun(dry bool) Option {
	return func(t *Trigger) {
		t.dryRun = dry
	}
}

func New(logger *types.Logger, sweeper sweeper, opts ...Option) *Trigger {
	t := &Trigger{
		sweeper:  sweeper,
		schedule: DefaultSchedule,
		lockTTL:  DefaultLockTTL,
		ctx:      context.Background(),
		cancel:   func() {},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.cron == nil {
		l := cronLogger{logger}
		t.cron = cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		)
	}
	return t
}

// Start registers the sweep job and starts the scheduler. Sweeps run with a
// context derived from ctx.
func (t *Trigger) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)
	if _, err := t.cron.AddFunc(t.schedule, t.Tick); err != nil {
		t.cancel()
		return err
	}
	t.cron.Start()
	t.logger.Infof("Notification trigger started (schedule=%q, dry_run=%t, locked=%t)", t.schedule, t.dryRun, t.locker != nil)
	return nil
}

// Stop halts the scheduler and waits for a running sweep until ctx is done,
// after which the sweep context is cancelled.
func (t *Trigger) Stop(ctx context.Context) {
	done := t.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		t.logger.Warn("Notification trigger stopped before the running sweep finished")
	}
	t.cancel()
}

// Tick runs one sweep
func (t *Trigger) Tick() {
	err := RunLocked(t.ctx, t.locker, t.lockTTL, func(ctx context.Context) {
		t.sweeper.RunAll(ctx, t.dryRun)
	})
	switch {
	case errors.Is(err, errorz.LockNotAcquired):
		t.logger.Debug("Sweep skipped, another instance holds the lock")
	case err != nil:
		t.logger.Errorf("Sweep lock failed: %v", err)
	}
}

// RunLocked runs fn under the sweep lock shared by every scheduled and manual run.
// A nil locker runs fn unguarded.
func RunLocked(ctx context.Context, l Locker, ttl time.Duration, fn func(ctx context.Context)) error {
	if l == nil {
		fn(ctx)
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return l.WithLock(ctx, lockName, ttl, fn)
}

// cronLogger adapts the zap logger to cron.Logger
type cronLogger struct {
	logger *types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
