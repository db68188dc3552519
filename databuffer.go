// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"fmt"
	"math"
)

// DataBuffer is a growable, contiguous container of fixed-size elements
// whose memory is owned by a MemoryPool. The element type T must be a
// plain fixed-layout value (numbers, fixed-size structs of such); it is
// copied with memcpy semantics and must not carry pointers the GC needs
// to see, since the backing memory is a pool-owned byte region.
//
// A DataBuffer is in one of two modes for its whole lifetime:
//
//   - owning mode (NewDataBuffer): storage is allocated from the pool and
//     returned to it by Clear. Capacity grows on demand and never
//     shrinks short of a full Clear.
//   - aliasing mode (Wrap): storage belongs to a SharedBuffer and is a
//     read-only view. Capacity is fixed; any growth attempt panics.
//
// There is deliberately no copy operation. Duplicating a buffer is an
// explicit AppendBuffer into a fresh instance, never an assignment, so an
// expensive copy is always visible at the call site. Use Move to transfer
// ownership.
//
// A DataBuffer has a single owner and is not safe for concurrent
// mutation. Violated preconditions panic; there is no error-return path.
type DataBuffer[T any] struct {
	pool MemoryPool    // nil in aliasing mode
	ref  *SharedBuffer // the aliased source, until Clear releases it

	raw      []byte // backing bytes, len == CapacityInBytes
	buf      []T    // element view over raw, len == capacity
	size     int
	capacity int
}

// NewDataBuffer creates an owning-mode buffer with the given initial
// logical size. The initial allocation is zero-filled by the pool, so
// no separate memset runs here; later capacity growth does not zero.
// Panics if the pool cannot satisfy the allocation.
func NewDataBuffer[T any](pool MemoryPool, size int) *DataBuffer[T] {
	raw := pool.AllocateZeroFilled(size, itemBytes[T]())
	if raw == nil && size > 0 {
		panic(fmt.Sprintf("databuf: allocation of %d items failed", size))
	}
	return &DataBuffer[T]{
		pool:     pool,
		raw:      raw,
		buf:      sliceCast[T](raw, size),
		size:     size,
		capacity: size,
	}
}

// Wrap creates an aliasing-mode buffer viewing ref's bytes as elements of
// type T, without copying. The buffer retains one reference on ref, which
// Clear releases; the returned handle may be shared by any number of
// readers. Length and capacity are both ref.Len() / sizeof(T), and the
// view is read-only: every mutating operation rejects a wrapped buffer.
func Wrap[T any](ref *SharedBuffer) *DataBuffer[T] {
	ref.Retain()
	items := ref.Len() / itemBytes[T]()
	return &DataBuffer[T]{
		ref:      ref,
		raw:      ref.Bytes(),
		buf:      sliceCast[T](ref.Bytes(), items),
		size:     items,
		capacity: items,
	}
}

// Move transfers the buffer's entire state to a fresh handle and leaves
// the receiver empty (nil data, zero length and capacity). A subsequent
// Clear of the moved-from buffer touches neither the pool nor the aliased
// source. The moved-from buffer keeps its pool and may be reused in
// owning mode.
func (b *DataBuffer[T]) Move() *DataBuffer[T] {
	moved := &DataBuffer[T]{
		pool:     b.pool,
		ref:      b.ref,
		raw:      b.raw,
		buf:      b.buf,
		size:     b.size,
		capacity: b.capacity,
	}
	b.ref = nil
	b.raw = nil
	b.buf = nil
	b.size = 0
	b.capacity = 0
	return moved
}

// Clear releases the buffer's storage: owning-mode memory goes back to
// the pool, an aliasing-mode buffer drops its reference on the shared
// source (whose lifetime is otherwise independent). Either way the buffer
// ends empty with zero capacity. Clear is the Go stand-in for the
// destructor and must be called before abandoning a buffer whose pool or
// source tracks outstanding memory.
func (b *DataBuffer[T]) Clear() {
	if b.pool != nil && b.raw != nil {
		b.pool.Free(b.raw)
	} else if b.ref != nil {
		b.ref.Release()
		b.ref = nil
	}
	b.raw = nil
	b.buf = nil
	b.size = 0
	b.capacity = 0
}

// Size returns the number of logically valid elements.
func (b *DataBuffer[T]) Size() int {
	return b.size
}

// Capacity returns the number of elements for which memory is allocated.
func (b *DataBuffer[T]) Capacity() int {
	return b.capacity
}

// CapacityInBytes returns the allocated capacity in bytes.
func (b *DataBuffer[T]) CapacityInBytes() int {
	return byteSize[T](b.capacity)
}

// Data returns the valid elements as a slice sharing the buffer's
// storage. It is invalidated by any operation that grows capacity.
func (b *DataBuffer[T]) Data() []T {
	return b.buf[:b.size:b.capacity]
}

// Get reads the element at index i without checking it against the
// logical size. The caller guarantees 0 <= i < Size.
func (b *DataBuffer[T]) Get(i int) T {
	return b.buf[i]
}

// Set writes the element at index i without checking it against the
// logical size. The caller guarantees 0 <= i < Size.
func (b *DataBuffer[T]) Set(i int, v T) {
	b.buf[i] = v
}

// At reads the element at index i with a range check. The check
// introduces measurable overhead; prefer Get on hot paths that can
// guarantee the index themselves.
func (b *DataBuffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("databuf: index %d out of range [0, %d)", i, b.size))
	}
	return b.buf[i]
}

// Reserve grows capacity to at least the requested number of elements.
// Requests at or below the current capacity are no-ops; capacity never
// shrinks here. Growing a wrapped buffer panics, as does a failed pool
// allocation. The first Reserve of an unallocated buffer uses the plain
// (not zero-filled) allocation path; growth reallocates, preserving the
// existing bytes but not zeroing the new ones.
func (b *DataBuffer[T]) Reserve(capacity int) {
	if capacity <= b.capacity {
		return
	}
	if b.pool == nil {
		panic("databuf: cannot reserve on a wrapped buffer")
	}
	newBytes := byteSize[T](capacity)
	var raw []byte
	if b.raw == nil {
		raw = b.pool.Allocate(newBytes)
	} else {
		raw = b.pool.Reallocate(b.raw, newBytes)
	}
	if raw == nil && newBytes > 0 {
		panic(fmt.Sprintf("databuf: allocation of %d bytes failed", newBytes))
	}
	b.raw = raw
	b.buf = sliceCast[T](raw, capacity)
	b.capacity = capacity
}

// growCapacity is the amortized growth policy: 50% headroom beyond the
// immediate need, plus one. Repeated single-element appends therefore
// trigger O(log n) reallocations rather than one per append.
func growCapacity(needed int) int {
	if needed >= math.MaxInt/2 {
		panic("databuf: capacity overflow")
	}
	return needed + (needed+1)/2 + 1
}

// Extend grows capacity, if needed, to hold items more elements beyond
// the current size, with growth headroom. The size itself is unchanged;
// this only pre-warms capacity for upcoming appends.
func (b *DataBuffer[T]) Extend(items int) {
	newSize := b.size + items
	if newSize > b.capacity {
		b.Reserve(growCapacity(newSize))
	}
}

// Resize sets the logical size, growing capacity as required. Elements
// newly exposed by a growing resize are zero-filled; a shrinking resize
// truncates the size without touching capacity or the bytes beyond it.
// Resizing a wrapped buffer panics: a shrink-then-regrow within the fixed
// capacity would zero-fill the shared immutable memory.
func (b *DataBuffer[T]) Resize(size int) {
	b.mustOwn()
	b.Reserve(size)
	if size > b.size {
		clear(b.buf[b.size:size])
	}
	b.size = size
}

// Append appends one element, growing capacity with headroom when full.
func (b *DataBuffer[T]) Append(v T) {
	b.mustOwn()
	if b.size >= b.capacity {
		b.Reserve(growCapacity(b.capacity))
	}
	b.UnsafeAppendValue(v)
}

// AppendAt copies src into the buffer at offset, reserving exactly the
// required capacity, and sets the size to offset+len(src). src must not
// overlap the buffer's own storage.
func (b *DataBuffer[T]) AppendAt(offset int, src []T) {
	b.mustOwn()
	b.Reserve(offset + len(src))
	b.UnsafeAppendAt(offset, src)
}

// AppendBuffer copies items elements of src starting at srcOffset into
// the buffer at offset. Panics if src does not hold srcOffset+items valid
// elements.
func (b *DataBuffer[T]) AppendBuffer(offset int, src *DataBuffer[T], srcOffset, items int) {
	if src.size < srcOffset+items {
		panic(fmt.Sprintf("databuf: append source range [%d, %d) exceeds size %d",
			srcOffset, srcOffset+items, src.size))
	}
	b.AppendAt(offset, src.buf[srcOffset:srcOffset+items])
}

// ExtendAppend is AppendAt with the headroom growth policy on the slow
// path, for call sites appending in a tight loop where an exact-fit
// Reserve per call would reallocate too often.
func (b *DataBuffer[T]) ExtendAppend(offset int, src []T) {
	b.mustOwn()
	newSize := offset + len(src)
	if newSize > b.capacity {
		b.Reserve(growCapacity(newSize))
	}
	b.UnsafeAppendAt(offset, src)
}

// UnsafeAppendAt copies src to offset and sets the size to
// offset+len(src), even when src is empty. No capacity check: the caller
// must have reserved offset+len(src) elements already.
func (b *DataBuffer[T]) UnsafeAppendAt(offset int, src []T) {
	if len(src) > 0 {
		copy(b.buf[offset:], src)
	}
	b.size = offset + len(src)
}

// UnsafeAppend copies src to the end of the valid region and advances the
// size. No capacity check.
func (b *DataBuffer[T]) UnsafeAppend(src []T) {
	if len(src) > 0 {
		copy(b.buf[b.size:], src)
		b.size += len(src)
	}
}

// UnsafeAppendValue appends one element without any capacity check.
func (b *DataBuffer[T]) UnsafeAppendValue(v T) {
	b.buf[b.size] = v
	b.size++
}

// SafeSet writes v at offset, growing capacity first if offset is out of
// range, and advances the size to offset+1 when it lands past the end.
//
// A sparse SafeSet leaves the elements between the old size and offset
// with unspecified content: capacity growth does not zero, so only bytes
// still covered by the zero-filled initial allocation read as zero.
// Callers that iterate the gap must write it first (or use Resize, which
// zero-fills).
func (b *DataBuffer[T]) SafeSet(offset int, v T) {
	b.mustOwn()
	if offset >= b.capacity {
		// Grow by 50% or to the offset, whichever is larger.
		size := growCapacity(b.capacity)
		if offset+1 > size {
			size = offset + 1
		}
		b.Reserve(size)
	}
	b.buf[offset] = v
	if offset >= b.size {
		b.size = offset + 1
	}
}

func (b *DataBuffer[T]) mustOwn() {
	if b.pool == nil {
		panic("databuf: cannot mutate a wrapped buffer")
	}
}
