package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BatchLockKey builds the redis key serializing execution of one batch job.
func BatchLockKey(jobID int64) string {
	return fmt.Sprintf("batch:job:%d:lock", jobID)
}

// Locker acquires short-lived redis locks for critical sections that span
// multiple database transactions, such as a batch execution run.
type Locker struct {
	client *redis.Client
}

// NewLocker constructs a Locker.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the lock, returning a release func, or false when the lock is
// already held elsewhere.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l == nil || l.client == nil {
		return func() {}, true, nil
	}
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = l.client.Del(context.WithoutCancel(ctx), key).Err()
	}
	return release, true, nil
}
