// Package alloc provides a first-fit, coalescing free-list allocator that
// manages allocations inside a caller-supplied, fixed-size byte region.
//
// # Overview
//
// The allocator never calls a system allocator. It borrows one contiguous
// []byte (the arena) and keeps its bookkeeping inside the free bytes of that
// arena: every free block starts with an 8-byte node header
//
//	0x00  next  uint32  offset of the next free node (0xFFFFFFFF = none)
//	0x04  size  uint32  block size in bytes, header included
//
// and the nodes form a singly linked list sorted by offset. Offsets are 32-bit,
// so arenas are limited to 4 GiB - 1.
//
// # Allocation
//
// Allocate walks the list from the head and takes the first block that can
// hold the request plus the alignment padding needed at that block's address:
//
//	a := alloc.New(region)
//	h, err := a.Allocate(256, 16)
//	if errors.Is(err, alloc.ErrNoSpace) {
//	    // no single free block is large enough
//	}
//	copy(a.Bytes(h), payload)
//
// A block with at least 8 bytes left over is split and the tail stays on the
// list. A smaller remainder is absorbed into the allocation (internal
// fragmentation), so no free block is ever smaller than a node header.
//
// # Deallocation
//
// The Handle returned by Allocate records the data offset, the padding in
// front of it and the reserved size, so Free rebuilds the block without any
// side table:
//
//	a.Deallocate(h) // panics on an invalid handle
//	err := a.Free(h) // same, but returns ErrBadHandle / ErrDoubleFree
//
// The freed block is inserted at its address position and merged with an
// adjacent successor and/or predecessor. Because the list is address-ordered,
// those two neighbours are the only blocks it can touch.
//
// # Errors
//
// Running out of space is ordinary: Allocate returns ErrNoSpace. Caller bugs
// (oversized or misaligned arena, size below 8, non power-of-two alignment,
// invalid handle to Deallocate) panic with a *ContractError.
//
// WithChecks records every live handle with a generation number, so stale,
// duplicate and forged handles are reported instead of corrupting the list.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally or use Locked.
//
// # Debugging
//
// Set FREELIST_LOG_ALLOC=1 to trace allocations and frees on stderr.
// DumpState prints the free list; the alloc/verify package checks invariants.
package alloc
