package fines

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "alex@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "alex@example.com", 12.5))

	value, ok, err := cache.Get(ctx, "alex@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 12.5, value)

	require.NoError(t, cache.Invalidate(ctx, "alex@example.com"))
	_, ok, err = cache.Get(ctx, "alex@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheNilClientIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "alex@example.com")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.Set(ctx, "alex@example.com", 1))
	require.NoError(t, cache.Invalidate(ctx, "alex@example.com"))
}

func TestCurrentFineUsesCache(t *testing.T) {
	repo := newMemoryRepo(1.0)
	repo.records = []BillableRecord{
		{ID: "r1", MemberID: "alex@example.com", DueDate: "2024-01-10"},
	}
	cache := newTestCache(t)
	svc := NewService(repo, cache, nil, 0)
	svc.SetClock(func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) })

	first, err := svc.CurrentFine(context.Background(), "alex@example.com")
	require.NoError(t, err)
	require.Equal(t, 10.0, first)

	// move the clock; the cached figure is served until it expires
	svc.SetClock(func() time.Time { return time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC) })
	second, err := svc.CurrentFine(context.Background(), "alex@example.com")
	require.NoError(t, err)
	require.Equal(t, 10.0, second)
}
