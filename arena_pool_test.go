// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestArenaPoolDefaults(t *testing.T) {
	pool := NewArenaPool()
	require.Equal(t, 1, len(pool.chunks))
	require.Equal(t, defaultChunkSize, pool.Cap())
	require.Equal(t, 0, pool.Len())
}

func TestArenaPoolAllocate(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(1024))

	a := pool.Allocate(100)
	require.NotNil(t, a)
	require.Equal(t, 100, len(a))
	require.GreaterOrEqual(t, pool.Len(), 100)

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(a)))
	require.Zero(t, addr%allocAlignment)

	b := pool.Allocate(100)
	require.NotNil(t, b)
	require.NotEqual(t, unsafe.SliceData(a), unsafe.SliceData(b))
}

func TestArenaPoolZeroSizeAllocation(t *testing.T) {
	pool := NewArenaPool()
	require.Nil(t, pool.Allocate(0))
	require.Equal(t, 0, pool.Len())
}

func TestArenaPoolLargeAllocationGetsOwnChunk(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(256))

	b := pool.Allocate(10_000)
	require.NotNil(t, b)
	require.Equal(t, 10_000, len(b))
	require.Equal(t, 2, len(pool.chunks))
}

func TestArenaPoolInitialChunks(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(256), WithInitialChunks(3))
	require.Equal(t, 3, len(pool.chunks))
	require.Equal(t, 3*256, pool.Cap())

	// Allocations fill existing chunks before creating new ones.
	for i := 0; i < 3; i++ {
		require.NotNil(t, pool.Allocate(150))
	}
	require.Equal(t, 3, len(pool.chunks))
}

func TestArenaPoolResetReusesMemory(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(1024))

	a := pool.Allocate(64)
	for i := range a {
		a[i] = 0xFF
	}
	used := pool.Len()
	require.Greater(t, used, 0)

	pool.Reset()
	require.Equal(t, 0, pool.Len())
	require.Equal(t, used, pool.Peak()) // peak survives Reset

	// The same memory comes back, dirty.
	b := pool.Allocate(64)
	require.Equal(t, unsafe.SliceData(a), unsafe.SliceData(b))
	require.Equal(t, byte(0xFF), b[0])

	// The zero-filled path clears explicitly.
	pool.Reset()
	c := pool.AllocateZeroFilled(8, 8)
	for _, v := range c {
		require.Equal(t, byte(0), v)
	}
}

func TestArenaPoolRelease(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(512))
	pool.Allocate(100)

	pool.Release()
	require.Equal(t, 0, pool.Len())
	require.Equal(t, 1, len(pool.chunks)) // chunks stay, memory is dropped

	// Still usable: chunk memory is reallocated lazily.
	b := pool.Allocate(100)
	require.NotNil(t, b)
}

func TestArenaPoolReallocate(t *testing.T) {
	pool := NewArenaPool(WithChunkSize(1024))

	a := pool.Allocate(8)
	copy(a, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	grown := pool.Reallocate(a, 24)
	require.Equal(t, 24, len(grown))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, grown[:8])

	// Free is a no-op: arena memory only comes back through Reset.
	used := pool.Len()
	pool.Free(grown)
	require.Equal(t, used, pool.Len())
}
