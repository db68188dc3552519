// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceCastRoundTrip(t *testing.T) {
	pool := NewMallocPool()
	raw := pool.Allocate(byteSize[int32](4))

	s := sliceCast[int32](raw, 4)
	require.Equal(t, 4, len(s))
	s[0] = 0x01020304
	s[3] = -1

	back := bytesOf(s, 4)
	require.Equal(t, raw, back)

	require.Nil(t, sliceCast[int32](nil, 0))
	require.Nil(t, bytesOf[int32](nil, 0))
}

func TestByteSizeByType(t *testing.T) {
	require.Equal(t, 4, byteSize[int32](1))
	require.Equal(t, 80, byteSize[int64](10))
	require.Equal(t, 7, byteSize[byte](7))
	require.Equal(t, 0, byteSize[int64](0))
}
