package databuf

import (
	"sync"
	"weak"
)

// PoolCache recycles ArenaPool instances across request-scoped uses.
//
// Cached entries are held through weak pointers, so the GC can collect them
// at any time. Before handing an entry out we upgrade to a strong pointer
// while removing it from the cache; Release turns it back into a weak
// pointer. At any point the GC can claim the memory back, which lets it
// manage an appropriate cache size based on available memory and GC
// pressure.
type PoolCache struct {
	cache []weak.Pointer[CachedPool]
	sizes map[uint64]*cachedPoolSize
	mu    sync.Mutex
}

// cachedPoolSize tracks the memory required across the last 50 pools
// released under one key.
type cachedPoolSize struct {
	count      int
	totalBytes int
}

// CachedPool wraps an ArenaPool for use in the cache.
type CachedPool struct {
	Pool *ArenaPool
	Key  uint64
}

// NewPoolCache creates a new PoolCache instance.
func NewPoolCache() *PoolCache {
	return &PoolCache{
		sizes: make(map[uint64]*cachedPoolSize),
	}
}

// Acquire gets a pool from the cache or creates a new one if none are
// available. The key identifies a use case; observed peak usage per key
// drives the chunk size of pools created for it.
func (pc *PoolCache) Acquire(key uint64) *CachedPool {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for len(pc.cache) > 0 {
		lastIdx := len(pc.cache) - 1
		wp := pc.cache[lastIdx]
		pc.cache = pc.cache[:lastIdx]

		if v := wp.Value(); v != nil {
			v.Key = key
			return v
		}
		// Weak pointer was collected, try the next entry.
	}

	return &CachedPool{
		Pool: NewArenaPool(WithChunkSize(pc.chunkSizeFor(key))),
		Key:  key,
	}
}

// Release resets a pool and returns it to the cache for reuse. The pool's
// peak usage is recorded to size future pools for the same key.
func (pc *PoolCache) Release(item *CachedPool) {
	peak := item.Pool.Peak()
	item.Pool.Reset()

	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.recordPeak(item.Key, peak)
	item.Key = 0

	w := weak.Make(item)
	pc.cache = append(pc.cache, w)
}

// ReleaseMany returns a batch of pools to the cache under one lock.
func (pc *PoolCache) ReleaseMany(items []*CachedPool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for _, item := range items {
		peak := item.Pool.Peak()
		item.Pool.Reset()

		pc.recordPeak(item.Key, peak)
		item.Key = 0

		w := weak.Make(item)
		pc.cache = append(pc.cache, w)
	}
}

func (pc *PoolCache) recordPeak(key uint64, peak int) {
	if size, ok := pc.sizes[key]; ok {
		if size.count == 50 {
			size.count = 1
			size.totalBytes = size.totalBytes / 50
		}
		size.count++
		size.totalBytes += peak
	} else {
		pc.sizes[key] = &cachedPoolSize{
			count:      1,
			totalBytes: peak,
		}
	}
}

// chunkSizeFor returns the chunk size to use for pools created under the
// given key, defaulting to 1MB when nothing has been recorded yet.
func (pc *PoolCache) chunkSizeFor(key uint64) int {
	if size, ok := pc.sizes[key]; ok && size.totalBytes > 0 {
		return size.totalBytes / size.count
	}
	return 1024 * 1024
}
