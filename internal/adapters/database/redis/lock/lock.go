package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "notifier:lock:"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type Storage struct {
	redis  client
	prefix string
}

func NewStorage(client client, prefix string) *Storage {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Storage{
		redis:  client,
		prefix: prefix,
	}
}

// Lock is a held lease on a named key
type Lock struct {
	storage *Storage
	key     string
	token   string
}

// Acquire takes the named lock for ttl. It returns errorz.LockNotAcquired when
// another holder owns the key.
func (s *Storage) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := s.prefix + name
	token := uuid.NewString()

	ok, err := s.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	if !ok {
		return nil, errorz.LockNotAcquired
	}
	return &Lock{storage: s, key: key, token: token}, nil
}

// Release drops the lock if it is still ours. An expired lease is not an error.
func (l *Lock) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.storage.redis, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %q: %w", l.key, err)
	}
	return nil
}

// WithLock runs fn while holding the named lock. When another holder owns it,
// fn is not called and errorz.LockNotAcquired is returned.
func (s *Storage) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context)) error {
	l, err := s.Acquire(ctx, name, ttl)
	if err != nil {
		return err
	}
	fn(ctx)
	return l.Release(context.WithoutCancel(ctx))
}
