// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"sync"
)

type concurrentPool struct {
	mtx sync.Mutex
	p   MemoryPool
}

// NewConcurrentPool returns a pool that is safe to be accessed concurrently
// from multiple goroutines. Note that this protects the pool only: a
// DataBuffer still has exactly one owner and is never safe to mutate from
// two goroutines, whatever pool backs it.
func NewConcurrentPool(p MemoryPool) MemoryPool {
	return &concurrentPool{p: p}
}

// AllocateZeroFilled satisfies the MemoryPool interface.
func (c *concurrentPool) AllocateZeroFilled(items, itemBytes int) []byte {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return nil
	}
	return c.p.AllocateZeroFilled(items, itemBytes)
}

// Allocate satisfies the MemoryPool interface.
func (c *concurrentPool) Allocate(size int) []byte {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return nil
	}
	return c.p.Allocate(size)
}

// Reallocate satisfies the MemoryPool interface.
func (c *concurrentPool) Reallocate(old []byte, newSize int) []byte {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return nil
	}
	return c.p.Reallocate(old, newSize)
}

// Free satisfies the MemoryPool interface.
func (c *concurrentPool) Free(b []byte) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return
	}
	c.p.Free(b)
}

// Len returns the number of bytes currently allocated from the wrapped pool.
func (c *concurrentPool) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return 0
	}
	return c.p.Len()
}

// Peak returns the high-water mark of bytes allocated from the wrapped pool.
func (c *concurrentPool) Peak() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.p == nil {
		return 0
	}
	return c.p.Peak()
}
