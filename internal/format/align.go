package format

// Alignment utilities shared by the allocator and the arena providers.
// All alignments are powers of two.

// IsPow2 reports whether n is a non-zero power of two.
func IsPow2(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Padding returns the number of bytes needed to move addr up to the next
// multiple of align. align must be a power of two.
//
// Example:
//
//	Padding(0x1000, 16) = 0
//	Padding(0x1004, 16) = 12
//	Padding(0x100F, 16) = 1
func Padding(addr uintptr, align uint32) uint32 {
	a := uintptr(align)
	return uint32((a - addr&(a-1)) & (a - 1))
}

// IsAligned reports whether addr is a multiple of align.
func IsAligned(addr uintptr, align uint32) bool {
	return addr&uintptr(align-1) == 0
}
