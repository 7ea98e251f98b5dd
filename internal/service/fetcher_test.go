package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_GetCachesPerKey(t *testing.T) {
	var calls int32
	f := NewFetcher(func(_ context.Context, key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "value-" + key, nil
	})
	ctx := context.Background()

	v, err := f.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "value-a", v)

	// Warm reads do not hit the backend.
	v, err = f.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "value-a", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// A different key is its own cache entry.
	_, err = f.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetcher_FirstFailureCachesNothing(t *testing.T) {
	var calls int32
	fail := errors.New("backend down")
	f := NewFetcher(func(_ context.Context, key string) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, fail
		}
		return 42, nil
	})
	ctx := context.Background()

	v, err := f.Get(ctx, "k")
	assert.ErrorIs(t, err, fail)
	assert.Zero(t, v)
	_, ok := f.Cached("k")
	assert.False(t, ok)

	// The next Get retries and succeeds.
	v, err = f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFetcher_RefreshBypassesWarmCacheOnce(t *testing.T) {
	var calls int32
	f := NewFetcher(func(_ context.Context, key string) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	})
	ctx := context.Background()

	v, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	v, err = f.Refresh(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)

	// After the refresh, reads are cached again.
	v, err = f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetcher_FailedRefreshKeepsPreviousValue(t *testing.T) {
	var calls int32
	fail := errors.New("backend down")
	f := NewFetcher(func(_ context.Context, key string) (string, error) {
		if atomic.AddInt32(&calls, 1) > 1 {
			return "", fail
		}
		return "original", nil
	})
	ctx := context.Background()

	_, err := f.Get(ctx, "k")
	require.NoError(t, err)

	v, err := f.Refresh(ctx, "k")
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, "original", v, "a failed refresh keeps the last good value")

	cached, ok := f.Cached("k")
	require.True(t, ok)
	assert.Equal(t, "original", cached)
}

func TestFetcher_ConcurrentLoadsCollapse(t *testing.T) {
	var calls int32
	gate := make(chan struct{})
	f := NewFetcher(func(_ context.Context, key string) (int32, error) {
		<-gate
		return atomic.AddInt32(&calls, 1), nil
	})
	ctx := context.Background()

	const n = 8
	results := make([]int32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.Get(ctx, "k")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent loads of one key collapse into one request")
	for _, v := range results {
		assert.Equal(t, int32(1), v)
	}
}

func TestFetcher_ClearAndInvalidate(t *testing.T) {
	var calls int32
	f := NewFetcher(func(_ context.Context, key string) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	})
	ctx := context.Background()

	_, err := f.Get(ctx, "a")
	require.NoError(t, err)
	_, err = f.Get(ctx, "b")
	require.NoError(t, err)

	f.Invalidate("a")
	_, ok := f.Cached("a")
	assert.False(t, ok)
	_, ok = f.Cached("b")
	assert.True(t, ok)

	f.Clear()
	_, ok = f.Cached("b")
	assert.False(t, ok)
}
