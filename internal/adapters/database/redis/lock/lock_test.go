package lock

import (
	"context"
	"testing"
	"time"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRedis keeps keys in a map and runs the release script natively
type memoryRedis struct {
	redis.Scripter
	keys map[string]string
	ttls map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = value.(string)
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) compareAndDelete(keys []string, args []interface{}) *redis.Cmd {
	if m.keys[keys[0]] != args[0].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.keys, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func (m *memoryRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return m.compareAndDelete(keys, args)
}

func (m *memoryRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return m.compareAndDelete(keys, args)
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryRedis()
	storage := NewStorage(mem, "")

	held, err := storage.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mem.ttls[defaultPrefix+"sweep"])

	_, err = storage.Acquire(ctx, "sweep", time.Minute)
	assert.ErrorIs(t, err, errorz.LockNotAcquired)

	require.NoError(t, held.Release(ctx))
	_, err = storage.Acquire(ctx, "sweep", time.Minute)
	assert.NoError(t, err)
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	ctx := context.Background()
	mem := newMemoryRedis()
	storage := NewStorage(mem, "test:")

	held, err := storage.Acquire(ctx, "sweep", time.Second)
	require.NoError(t, err)

	// lease expired and was taken by another process
	mem.keys["test:sweep"] = "someone-else"

	require.NoError(t, held.Release(ctx))
	assert.Equal(t, "someone-else", mem.keys["test:sweep"])
}

func TestWithLockSkipsWhenHeld(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage(newMemoryRedis(), "")

	calls := 0
	require.NoError(t, storage.WithLock(ctx, "sweep", time.Minute, func(ctx context.Context) {
		calls++
		err := storage.WithLock(ctx, "sweep", time.Minute, func(context.Context) { calls++ })
		assert.ErrorIs(t, err, errorz.LockNotAcquired)
	}))
	assert.Equal(t, 1, calls)

	require.NoError(t, storage.WithLock(ctx, "sweep", time.Minute, func(context.Context) { calls++ }))
	assert.Equal(t, 2, calls)
}
