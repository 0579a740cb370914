package shared_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/shared"
)

func newTestLocker(t *testing.T) *shared.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewLocker(client)
}

func TestLockerMutualExclusion(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	key := shared.BatchLockKey(7)

	release, ok, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "second acquire must fail while held")

	release()

	release2, ok, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "lock must be available after release")
	release2()
}

func TestLockerNilClientAlwaysAcquires(t *testing.T) {
	var locker *shared.Locker
	release, ok, err := locker.Acquire(context.Background(), "any", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	release()
}
