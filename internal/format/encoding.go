package format

import "encoding/binary"

// Binary encoding utilities for little-endian integers.
//
// Node headers live inside the arena's free bytes and may start at any byte
// offset once a split relocates them, so they are read and written through
// encoding/binary rather than by casting memory to a struct. The compiler
// inlines these calls to plain loads and stores.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}
