package cron

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/pkg/logger/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	runs atomic.Int32
	dry  atomic.Bool
}

func (s *countingSweeper) RunAll(_ context.Context, dry bool) {
	s.dry.Store(dry)
	s.runs.Add(1)
}

type fakeLocker struct {
	mu    sync.Mutex
	held  bool
	names []string
	err   error
}

func (l *fakeLocker) WithLock(ctx context.Context, name string, _ time.Duration, fn func(context.Context)) error {
	l.mu.Lock()
	l.names = append(l.names, name)
	held, err := l.held, l.err
	l.mu.Unlock()

	if err != nil {
		return err
	}
	if held {
		return errorz.LockNotAcquired
	}
	fn(ctx)
	return nil
}

func testLogger(t *testing.T) *types.Logger {
	return &types.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

func TestTickWithoutLocker(t *testing.T) {
	s := &countingSweeper{}
	trigger := New(testLogger(t), s, WithDryRun(true))

	trigger.Tick()

	assert.EqualValues(t, 1, s.runs.Load())
	assert.True(t, s.dry.Load())
}

func TestTickHonorsLock(t *testing.T) {
	s := &countingSweeper{}
	locker := &fakeLocker{}
	trigger := New(testLogger(t), s, WithLocker(locker, time.Minute))

	trigger.Tick()
	assert.EqualValues(t, 1, s.runs.Load())
	assert.Equal(t, []string{lockName}, locker.names)

	locker.held = true
	trigger.Tick()
	assert.EqualValues(t, 1, s.runs.Load())

	locker.held = false
	locker.err = assert.AnError
	trigger.Tick()
	assert.EqualValues(t, 1, s.runs.Load())
}

func TestRunLockedSharesSweepLock(t *testing.T) {
	runs := 0
	fn := func(context.Context) { runs++ }

	require.NoError(t, RunLocked(context.Background(), nil, 0, fn))
	assert.Equal(t, 1, runs)

	locker := &fakeLocker{}
	require.NoError(t, RunLocked(context.Background(), locker, 0, fn))
	assert.Equal(t, 2, runs)
	assert.Equal(t, []string{lockName}, locker.names)

	locker.held = true
	err := RunLocked(context.Background(), locker, time.Minute, fn)
	require.ErrorIs(t, err, errorz.LockNotAcquired)
	assert.Equal(t, 2, runs)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	trigger := New(testLogger(t), &countingSweeper{}, WithSchedule("every minute please"))
	require.Error(t, trigger.Start(context.Background()))
}

func TestStartRunsSweeps(t *testing.T) {
	s := &countingSweeper{}
	// the cron goroutine may still log after Stop returns
	trigger := New(types.Nop(), s, WithSchedule("@every 1s"))

	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return s.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	trigger.Stop(ctx)
}
