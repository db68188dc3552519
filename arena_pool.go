// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"unsafe"
)

// ArenaPool is a MemoryPool that carves allocations out of a small number
// of lazily allocated chunks. Individual frees are no-ops; memory comes
// back in bulk via Reset (keep the chunks) or Release (drop them). That
// makes it a good fit for request-scoped DataBuffers that are all
// discarded together.
//
// After a Reset the chunk memory is reused as-is, so Allocate may return
// dirty bytes; AllocateZeroFilled clears explicitly.
type ArenaPool struct {
	chunks        []*arenaChunk
	peak          int
	chunkSize     int
	initialChunks int
}

type arenaChunk struct {
	buf    []byte
	offset int
	size   int
}

func newArenaChunk(size int) *arenaChunk {
	return &arenaChunk{size: size}
}

func (c *arenaChunk) alloc(size int) ([]byte, bool) {
	if c.buf == nil {
		c.buf = make([]byte, c.size) // allocate chunk memory lazily
	}
	// Align the absolute address, not the chunk-relative offset: the
	// chunk's own base has no 64-byte guarantee.
	base := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	off := c.offset + int(-(base+uintptr(c.offset))&(allocAlignment-1))
	if off+size > c.size {
		return nil, false
	}
	c.offset = off + size
	return c.buf[off : off+size : off+size], true
}

func (c *arenaChunk) reset() {
	c.offset = 0
}

func (c *arenaChunk) release() {
	c.offset = 0
	c.buf = nil
}

const defaultChunkSize = 1024 * 32 // 32KB

// ArenaPoolOption represents a configuration option for an ArenaPool.
type ArenaPoolOption func(*ArenaPool)

// WithChunkSize sets the size of chunks created by the pool. Allocations
// larger than a chunk get a dedicated chunk of their own.
func WithChunkSize(size int) ArenaPoolOption {
	return func(p *ArenaPool) {
		p.chunkSize = size
	}
}

// WithInitialChunks sets the number of chunks to create up front.
func WithInitialChunks(count int) ArenaPoolOption {
	return func(p *ArenaPool) {
		p.initialChunks = count
	}
}

// NewArenaPool creates a chunked bump-allocating pool. If no options are
// provided it uses 32KB chunks and creates one initial chunk.
func NewArenaPool(opts ...ArenaPoolOption) *ArenaPool {
	p := &ArenaPool{
		chunkSize:     defaultChunkSize,
		initialChunks: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < p.initialChunks; i++ {
		p.chunks = append(p.chunks, newArenaChunk(p.chunkSize))
	}
	return p
}

// Allocate satisfies the MemoryPool interface.
func (p *ArenaPool) Allocate(size int) []byte {
	if size == 0 {
		return nil
	}
	for i := 0; i < len(p.chunks); i++ {
		if b, ok := p.chunks[i].alloc(size); ok {
			p.notePeak()
			return b
		}
	}

	// No existing chunk has enough space. Account for alignment padding so
	// the new chunk is guaranteed to fit the request.
	chunkSize := size + allocAlignment
	if chunkSize < p.chunkSize {
		chunkSize = p.chunkSize
	}
	chunk := newArenaChunk(chunkSize)
	p.chunks = append(p.chunks, chunk)

	b, ok := chunk.alloc(size)
	if !ok {
		// Cannot happen: the chunk was sized for this allocation.
		panic("databuf: arena chunk sizing bug")
	}
	p.notePeak()
	return b
}

// AllocateZeroFilled satisfies the MemoryPool interface. Chunk memory is
// reused across Reset, so the requested range is cleared explicitly.
func (p *ArenaPool) AllocateZeroFilled(items, itemBytes int) []byte {
	b := p.Allocate(mulBytes(items, itemBytes))

	// This loop is compiled to a runtime.memclrNoHeapPointers call, which
	// is an assembler optimized implementation (see src/runtime/memclr_*.s
	// in the Go source).
	for i := range b {
		b[i] = 0
	}
	return b
}

// Reallocate satisfies the MemoryPool interface. A bump allocator cannot
// grow in place, so this allocates fresh and copies.
func (p *ArenaPool) Reallocate(old []byte, newSize int) []byte {
	if newSize == len(old) {
		return old
	}
	buf := p.Allocate(newSize)
	if buf == nil {
		return nil
	}
	copy(buf, old)
	return buf
}

// Free satisfies the MemoryPool interface. Arena memory is reclaimed only
// in bulk, so individual frees do nothing.
func (p *ArenaPool) Free([]byte) {}

// Reset makes all chunk memory available again without releasing it.
// Every allocation handed out before the Reset becomes invalid.
func (p *ArenaPool) Reset() {
	for _, c := range p.chunks {
		c.reset()
	}
}

// Release returns all chunk memory to the runtime. The pool can still be
// used afterwards; chunks are reallocated lazily.
func (p *ArenaPool) Release() {
	for _, c := range p.chunks {
		c.release()
	}
}

func (p *ArenaPool) notePeak() {
	if n := p.Len(); n > p.peak {
		p.peak = n
	}
}

// Len returns the total number of bytes currently allocated from the pool,
// including alignment padding.
func (p *ArenaPool) Len() int {
	total := 0
	for _, c := range p.chunks {
		total += c.offset
	}
	return total
}

// Cap returns the total capacity in bytes of all chunks.
func (p *ArenaPool) Cap() int {
	total := 0
	for _, c := range p.chunks {
		total += c.size
	}
	return total
}

// Peak returns the high-water mark of bytes allocated from the pool.
// It is not reset by Reset, allowing tracking of maximum usage.
func (p *ArenaPool) Peak() int {
	return p.peak
}
