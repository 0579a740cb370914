package reports_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-retail/meridian/internal/ledger/reports"
)

func newTestCache(t *testing.T) *reports.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return reports.NewCache(client, time.Minute)
}

func TestCacheFetchJSONLoadsOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, reports.TrialBalanceKey(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))...)
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]float64{"total": 42.50}, nil
	}

	var first map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	require.Equal(t, 42.50, first["total"])
	require.Equal(t, 1, calls)

	var second map[string]float64
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 42.50, second["total"])
	require.Equal(t, 1, calls, "second fetch must come from cache")
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	asOf := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	before, err := cache.BuildKey(ctx, reports.TrialBalanceKey(asOf)...)
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, reports.TrialBalanceKey(asOf)...)
	require.NoError(t, err)
	require.NotEqual(t, before, after, "bump must change the key for the same report")
}

func TestCacheNilClientCallsLoader(t *testing.T) {
	cache := reports.NewCache(nil, time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var out []string
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, "k", &out, loader))
	require.Equal(t, 2, calls)
	require.Equal(t, []string{"a", "b"}, out)
}
