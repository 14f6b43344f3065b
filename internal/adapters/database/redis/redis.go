package redis

import (
	"context"
	"fmt"

	"github.com/meetingday/notifier/internal/adapters/database/redis/lock"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
	Locks *lock.Storage
}

type Options struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping lock storage: %w", err)
	}

	return &Client{
		Client: rdb,
		Locks:  lock.NewStorage(rdb, opts.KeyPrefix),
	}, nil
}
