package archive

import (
	"context"
	"sync"

	"github.com/hupe1980/appendbuf/internal/cache"
	"github.com/hupe1980/appendbuf/resource"
)

// DefaultCacheBytes is the capacity used by NewCachingStore when none is given.
const DefaultCacheBytes = 64 << 20

// CachingStore wraps a Store and keeps recently read frames in memory so
// repeated restores of the same object skip the backend. Writes and
// deletes go to the inner store and invalidate the cached copy.
type CachingStore struct {
	inner Store
	cache *cache.LRU

	// gen is bumped by every completed write or delete. A read-through
	// only fills the cache if no write finished while it was in flight.
	mu  sync.Mutex
	gen uint64
}

// CacheStats reports cache effectiveness.
type CacheStats = cache.Stats

// NewCachingStore creates a CachingStore holding at most capacity bytes.
// A non-positive capacity means DefaultCacheBytes. When rc is not nil the
// cached bytes are charged against its memory budget.
func NewCachingStore(inner Store, capacity int64, rc *resource.Controller) *CachingStore {
	if capacity <= 0 {
		capacity = DefaultCacheBytes
	}

	var acquirer cache.MemoryAcquirer
	if rc != nil {
		acquirer = rc
	}
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity, acquirer),
	}
}

// Put writes through to the inner store.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	defer s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Get serves from the cache or reads through and caches the result.
// The returned slice is a private copy.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data, ok := s.cache.Get(name); ok {
		return clone(data), nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.cache.Set(name, clone(data))
	}
	s.mu.Unlock()
	return data, nil
}

// Delete removes the object from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	defer s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) invalidate(name string) {
	s.mu.Lock()
	s.gen++
	s.cache.Remove(name)
	s.mu.Unlock()
}

// List is served by the inner store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns the cache counters.
func (s *CachingStore) Stats() CacheStats {
	return s.cache.Stats()
}

// Purge drops every cached frame.
func (s *CachingStore) Purge() {
	s.cache.Purge()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Store = (*CachingStore)(nil)
