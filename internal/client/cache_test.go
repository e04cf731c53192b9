package client_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marco/chatlink/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFetch(counter *int32, value []string) client.FetchFunc[[]string] {
	return func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(counter, 1)
		return value, nil
	}
}

func TestCache_GetServesFreshValueLocally(t *testing.T) {
	var fetches int32
	cache := client.NewCache(time.Minute, countingFetch(&fetches, []string{"a", "b"}))
	ctx := context.Background()

	v, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	// Within the TTL the second read must not touch the fetcher.
	v, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestCache_GetRefetchesAfterTTL(t *testing.T) {
	var fetches int32
	cache := client.NewCache(20*time.Millisecond, countingFetch(&fetches, []string{"a"}))
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestCache_FetchErrorIsNotCached(t *testing.T) {
	fetchErr := errors.New("fetch failed")
	fail := true
	cache := client.NewCache(time.Minute, func(ctx context.Context) ([]string, error) {
		if fail {
			return nil, fetchErr
		}
		return []string{"ok"}, nil
	})
	ctx := context.Background()

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, fetchErr)

	_, ok := cache.Peek()
	assert.False(t, ok)

	fail = false
	v, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, v)
}

func TestCache_SetAndUpdatePublish(t *testing.T) {
	var fetches int32
	cache := client.NewCache(time.Minute, countingFetch(&fetches, []string{"fetched"}))
	ctx := context.Background()

	var published [][]string
	unsubscribe := cache.Subscribe(func(v []string) {
		published = append(published, v)
	})

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	cache.Set([]string{"set"})
	cache.Update(func(v []string) []string {
		return append(v, "updated")
	})

	require.Len(t, published, 3)
	assert.Equal(t, []string{"fetched"}, published[0])
	assert.Equal(t, []string{"set"}, published[1])
	assert.Equal(t, []string{"set", "updated"}, published[2])

	// After unsubscribing nothing more arrives.
	unsubscribe()
	cache.Set([]string{"silent"})
	assert.Len(t, published, 3)
}

func TestCache_UpdateBeforeFirstFetchIsNoop(t *testing.T) {
	cache := client.NewCache(time.Minute, countingFetch(new(int32), []string{"a"}))

	notified := false
	cache.Subscribe(func([]string) { notified = true })

	cache.Update(func(v []string) []string {
		return append(v, "patch")
	})

	_, ok := cache.Peek()
	assert.False(t, ok)
	assert.False(t, notified)
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	var fetches int32
	cache := client.NewCache(time.Hour, countingFetch(&fetches, []string{"a"}))
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestCache_RefreshBypassesTTL(t *testing.T) {
	var fetches int32
	cache := client.NewCache(time.Hour, countingFetch(&fetches, []string{"a"}))
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.NoError(t, err)

	_, err = cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}
