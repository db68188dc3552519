// SPDX-License-Identifier: Apache-2.0

// Package databuf provides a growable container of fixed-size elements that
// allocates through a pluggable, accounted memory pool instead of the Go
// heap directly, and that can alias memory held by an immutable
// reference-counted buffer without copying.
package databuf

import (
	"unsafe"
)

// MemoryPool is the allocation interface DataBuffer allocates through.
// All sizes are byte counts. A nil return from any allocating method
// signals allocation failure (for example a pool quota being exceeded);
// DataBuffer treats that as fatal.
type MemoryPool interface {
	// AllocateZeroFilled allocates items*itemBytes bytes, all zero.
	AllocateZeroFilled(items, itemBytes int) []byte

	// Allocate allocates size bytes. The content is unspecified: pools
	// that recycle memory may return dirty bytes.
	Allocate(size int) []byte

	// Reallocate resizes an allocation previously obtained from this pool.
	// The first min(len(old), newSize) bytes are preserved; the returned
	// slice may or may not share memory with old.
	Reallocate(old []byte, newSize int) []byte

	// Free returns an allocation to the pool. The caller must not use b
	// afterwards.
	Free(b []byte)

	// Len returns the number of bytes currently allocated from the pool.
	Len() int

	// Peak returns the high-water mark of bytes allocated from the pool.
	// It is not reset by freeing.
	Peak() int
}

// Allocations are padded so the handed-out bytes start on a 64-byte
// boundary, which satisfies the alignment of any element type a DataBuffer
// can hold.
const allocAlignment = 64

func alignedBytes(size int) []byte {
	buf := make([]byte, size+allocAlignment)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := int(-addr & (allocAlignment - 1))
	return buf[shift : size+shift : size+shift]
}

// MallocPool is a runtime-backed MemoryPool with byte accounting and an
// optional quota. It is not safe for concurrent use; wrap it in a
// ConcurrentPool when a pool is shared across goroutines.
type MallocPool struct {
	limit int // <= 0 means unlimited
	used  int
	peak  int
}

// MallocPoolOption represents a configuration option for a MallocPool.
type MallocPoolOption func(*MallocPool)

// WithCapacityLimit bounds the total number of bytes the pool will hand
// out at any one time. Allocations that would exceed the limit fail.
func WithCapacityLimit(bytes int) MallocPoolOption {
	return func(p *MallocPool) {
		p.limit = bytes
	}
}

// NewMallocPool creates a pool backed by the Go runtime allocator.
// Without options the pool is unbounded.
func NewMallocPool(opts ...MallocPoolOption) *MallocPool {
	p := &MallocPool{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allocate satisfies the MemoryPool interface.
func (p *MallocPool) Allocate(size int) []byte {
	if size == 0 {
		return nil
	}
	if p.limit > 0 && p.used+size > p.limit {
		return nil
	}
	return p.grab(size)
}

// grab allocates unconditionally; the caller has checked the quota.
func (p *MallocPool) grab(size int) []byte {
	p.used += size
	if p.used > p.peak {
		p.peak = p.used
	}
	return alignedBytes(size)
}

// AllocateZeroFilled satisfies the MemoryPool interface. Fresh runtime
// memory is already zero, so this is Allocate with a multiply.
func (p *MallocPool) AllocateZeroFilled(items, itemBytes int) []byte {
	return p.Allocate(mulBytes(items, itemBytes))
}

// Reallocate satisfies the MemoryPool interface. The runtime cannot grow
// an allocation in place, so this always moves: allocate, copy, free.
// The quota is checked against the net usage after the old block comes
// back, not against the transient sum of old plus new, so a reallocation
// whose result fits the limit never fails.
func (p *MallocPool) Reallocate(old []byte, newSize int) []byte {
	if newSize == len(old) {
		return old
	}
	if newSize == 0 {
		p.Free(old)
		return nil
	}
	if p.limit > 0 && p.used-len(old)+newSize > p.limit {
		return nil
	}
	buf := p.grab(newSize)
	copy(buf, old)
	p.Free(old)
	return buf
}

// Free satisfies the MemoryPool interface. The memory itself is reclaimed
// by the garbage collector; only the accounting is updated here.
func (p *MallocPool) Free(b []byte) {
	p.used -= len(b)
}

// Len returns the number of bytes currently allocated from the pool.
func (p *MallocPool) Len() int {
	return p.used
}

// Peak returns the high-water mark of bytes allocated from the pool.
func (p *MallocPool) Peak() int {
	return p.peak
}
