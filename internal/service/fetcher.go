package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fetcher is a generic cached resource loader keyed by K. Concurrent loads
// of the same key are deduplicated through singleflight; at most one backend
// request is in flight per key. Get serves warm cache entries without a
// request; Refresh bypasses the cache for exactly one load and keeps the
// previous value when the load fails.
type Fetcher[K comparable, V any] struct {
	load func(ctx context.Context, key K) (V, error)

	group singleflight.Group

	mu    sync.Mutex
	cache map[K]V
}

// NewFetcher constructs a Fetcher around the given load function.
func NewFetcher[K comparable, V any](load func(ctx context.Context, key K) (V, error)) *Fetcher[K, V] {
	return &Fetcher[K, V]{
		load:  load,
		cache: make(map[K]V),
	}
}

// Get returns the cached value for key, loading it on first use. A failed
// first load caches nothing: the zero value and the error are returned and
// the next Get retries.
func (f *Fetcher[K, V]) Get(ctx context.Context, key K) (V, error) {
	f.mu.Lock()
	if v, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return v, nil
	}
	f.mu.Unlock()

	return f.fetch(ctx, key)
}

// Refresh loads key from the backend regardless of cache state. On success
// the cache is replaced; on failure the previously cached value (if any) is
// returned alongside the error.
func (f *Fetcher[K, V]) Refresh(ctx context.Context, key K) (V, error) {
	v, err := f.fetch(ctx, key)
	if err != nil {
		f.mu.Lock()
		prev, ok := f.cache[key]
		f.mu.Unlock()
		if ok {
			return prev, err
		}
	}
	return v, err
}

// Cached returns the cached value for key without loading.
func (f *Fetcher[K, V]) Cached(key K) (V, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.cache[key]
	return v, ok
}

// Invalidate drops the cache entry for key.
func (f *Fetcher[K, V]) Invalidate(key K) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, key)
}

// Clear drops all cache entries. Called on logout so no data outlives the
// session that fetched it.
func (f *Fetcher[K, V]) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[K]V)
}

func (f *Fetcher[K, V]) fetch(ctx context.Context, key K) (V, error) {
	v, err, _ := f.group.Do(fmt.Sprintf("%v", key), func() (any, error) {
		return f.load(ctx, key)
	})
	if err != nil {
		var zero V
		return zero, err
	}

	value := v.(V)
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
	return value, nil
}
