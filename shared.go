// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"sync/atomic"
)

// SharedBuffer is an immutable, reference-counted byte region. It is the
// zero-copy hand-off format between pipeline stages: producers fill it
// once, then any number of readers hold references concurrently. The
// refcount is atomic; the content must never change after publication.
//
// A new SharedBuffer starts with one reference owned by the creator.
// Retain adds a reference, Release drops one; releasing the last reference
// returns pool-backed memory to its pool.
type SharedBuffer struct {
	pool MemoryPool // nil when the memory is not pool-backed
	data []byte
	refs atomic.Int64
}

// NewSharedBuffer allocates a zero-filled shared buffer of size bytes from
// the pool. Returns nil if the pool cannot satisfy the allocation.
func NewSharedBuffer(pool MemoryPool, size int) *SharedBuffer {
	data := pool.AllocateZeroFilled(size, 1)
	if data == nil && size > 0 {
		return nil
	}
	b := &SharedBuffer{pool: pool, data: data}
	b.refs.Store(1)
	return b
}

// NewSharedBufferFrom creates a shared buffer holding a copy of src.
// The copy is deliberate: the buffer must not observe later mutation of
// the caller's slice.
func NewSharedBufferFrom(src []byte) *SharedBuffer {
	data := make([]byte, len(src))
	copy(data, src)
	b := &SharedBuffer{data: data}
	b.refs.Store(1)
	return b
}

// Retain adds a reference, extending the buffer's lifetime until a
// matching Release. Retaining a fully released buffer panics; the count
// is only incremented while at least one reference is still live, so a
// dead buffer's count stays at zero.
func (b *SharedBuffer) Retain() {
	for {
		refs := b.refs.Load()
		if refs <= 0 {
			panic("databuf: retain of released buffer")
		}
		if b.refs.CompareAndSwap(refs, refs+1) {
			return
		}
	}
}

// Release drops one reference. Dropping the last reference frees
// pool-backed memory; afterwards the buffer must not be used.
func (b *SharedBuffer) Release() {
	refs := b.refs.Add(-1)
	if refs < 0 {
		panic("databuf: release of released buffer")
	}
	if refs == 0 {
		if b.pool != nil {
			b.pool.Free(b.data)
		}
		b.data = nil
	}
}

// Bytes returns the buffer's content. Callers must treat it as read-only.
func (b *SharedBuffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer's byte length.
func (b *SharedBuffer) Len() int {
	return len(b.data)
}

// Refs returns the current reference count.
func (b *SharedBuffer) Refs() int {
	return int(b.refs.Load())
}
