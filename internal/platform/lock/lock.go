// Package lock provides the optional per-client lock taken around coordinator transactions.
// The lock only reduces contention: correctness still comes from the store transaction.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// NoopLocker never blocks. It is used when no lock backend is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// RedisLocker takes short-lived distributed locks with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	logger *slog.Logger
}

// NewRedisLocker creates a locker on an existing Redis client.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(25*time.Millisecond), 40),
		logger: logger,
	}
}

// Acquire obtains the lock for key. When the lock cannot be obtained the caller proceeds
// without it and the returned release is a no-op.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("could not obtain redis lock; proceeding without it", slog.String("key", key))
		return func() {}, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("obtaining lock %s: %w", key, ctx.Err())
		}
		l.logger.Warn("error obtaining redis lock; proceeding without it", slog.String("key", key), slog.String("error", err.Error()))
		return func() {}, nil
	}
	return func() {
		// Use a fresh context: the request context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release redis lock", slog.String("key", key), slog.String("error", err.Error()))
		}
	}, nil
}
