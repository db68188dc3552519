// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharedBufferFromCopiesSource(t *testing.T) {
	src := []byte{1, 2, 3}
	buf := NewSharedBufferFrom(src)

	src[0] = 99 // later mutation of the source must not show through
	require.Equal(t, []byte{1, 2, 3}, buf.Bytes())
	require.Equal(t, 3, buf.Len())
	require.Equal(t, 1, buf.Refs())
}

func TestSharedBufferRefCounting(t *testing.T) {
	buf := NewSharedBufferFrom([]byte{1})
	require.Equal(t, 1, buf.Refs())

	buf.Retain()
	buf.Retain()
	require.Equal(t, 3, buf.Refs())

	buf.Release()
	buf.Release()
	require.Equal(t, 1, buf.Refs())
	require.NotNil(t, buf.Bytes())

	buf.Release()
	require.Equal(t, 0, buf.Refs())
	require.Nil(t, buf.Bytes())

	// A failed Retain must not bump the count back to 1; the buffer
	// stays dead and a further Release still trips the underflow check.
	require.Panics(t, func() { buf.Retain() })
	require.Equal(t, 0, buf.Refs())
	require.Panics(t, func() { buf.Release() })
}

func TestSharedBufferPoolBacked(t *testing.T) {
	pool := NewMallocPool()
	buf := NewSharedBuffer(pool, 64)
	require.NotNil(t, buf)
	require.Equal(t, 64, buf.Len())
	require.Equal(t, 64, pool.Len())
	for _, v := range buf.Bytes() {
		require.Equal(t, byte(0), v)
	}

	buf.Retain()
	buf.Release()
	require.Equal(t, 64, pool.Len()) // still one reference outstanding

	buf.Release()
	require.Equal(t, 0, pool.Len()) // last release freed the memory
}

func TestSharedBufferPoolAllocationFailure(t *testing.T) {
	pool := NewMallocPool(WithCapacityLimit(16))
	require.Nil(t, NewSharedBuffer(pool, 1024))
	require.Equal(t, 0, pool.Len())
}

func TestSharedBufferEmpty(t *testing.T) {
	buf := NewSharedBufferFrom(nil)
	require.Equal(t, 0, buf.Len())

	wrapped := Wrap[int32](buf)
	require.Equal(t, 0, wrapped.Size())
	require.Equal(t, 0, wrapped.Capacity())
	wrapped.Clear()
	buf.Release()
}
