// SPDX-License-Identifier: Apache-2.0

package databuf

import (
	"math"
	"unsafe"
)

// mulBytes multiplies an element count by an element size, panicking on
// overflow rather than letting a wrapped byte count reach the pool.
func mulBytes(items, itemBytes int) int {
	if items < 0 {
		panic("databuf: negative item count")
	}
	if itemBytes > 0 && items > math.MaxInt/itemBytes {
		panic("databuf: byte size overflow")
	}
	return items * itemBytes
}

// itemBytes returns the size of one element of type T in bytes.
func itemBytes[T any]() int {
	var x T
	return int(unsafe.Sizeof(x))
}

// byteSize returns the number of bytes occupied by items elements of type T.
func byteSize[T any](items int) int {
	return mulBytes(items, itemBytes[T]())
}

// sliceCast views the leading bytes of b as a slice of items elements of
// type T. The caller guarantees b holds at least byteSize[T](items) bytes
// and is aligned for T; pool allocations are, see allocAlignment.
func sliceCast[T any](b []byte, items int) []T {
	if items == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), items)
}

// bytesOf is the inverse view: the raw bytes backing a slice of T.
func bytesOf[T any](s []T, items int) []byte {
	if items == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), byteSize[T](items))
}
