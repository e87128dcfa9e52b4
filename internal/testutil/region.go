// Package testutil holds helpers shared by the allocator test suites.
package testutil

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/freelist/internal/format"
)

// AlignedRegion returns a zeroed size-byte region whose base address is a
// multiple of align, so padding expectations do not depend on where the Go
// heap placed the buffer. Capacity is clipped to size.
//
// Example:
//
//	a := alloc.New(testutil.AlignedRegion(t, 4096, 64))
func AlignedRegion(t testing.TB, size, align int) []byte {
	t.Helper()
	raw := make([]byte, size+align)
	off := int(format.Padding(uintptr(unsafe.Pointer(&raw[0])), uint32(align)))
	region := raw[off : off+size : off+size]
	require.Zero(t, uintptr(unsafe.Pointer(&region[0]))%uintptr(align))
	return region
}
