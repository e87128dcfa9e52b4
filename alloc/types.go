package alloc

// Handle identifies one live allocation. It carries everything Free needs to
// rebuild the original block, so deallocation never consults side tables in
// the default mode. Handles are plain values and may be copied freely; the
// zero Handle is never returned by a successful Allocate.
type Handle struct {
	off   uint32 // data offset: block start + pad
	pad   uint32 // alignment padding in front of the data
	size  uint32 // reserved bytes from the block start (padding and slack included)
	gen   uint32 // allocation sequence number, unique per allocator
	owner uint32 // id of the allocator that produced the handle
}

// Offset returns the arena offset of the first usable byte.
func (h Handle) Offset() uint32 { return h.off }

// Padding returns the alignment bytes reserved in front of Offset.
func (h Handle) Padding() uint32 { return h.pad }

// Size returns the total number of arena bytes reserved by this allocation,
// padding and any absorbed slack included.
func (h Handle) Size() uint32 { return h.size }

// Len returns the number of usable bytes starting at Offset. It is at least
// the requested size and may exceed it by absorbed slack.
func (h Handle) Len() uint32 { return h.size - h.pad }

// Start returns the arena offset of the reserved block (Offset - Padding).
func (h Handle) Start() uint32 { return h.off - h.pad }

// Generation returns the allocation sequence number.
func (h Handle) Generation() uint32 { return h.gen }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Interface is the allocation surface shared by Allocator and Locked.
type Interface interface {
	// Allocate reserves size bytes aligned to align. It returns ErrNoSpace
	// when no single free block can hold the request.
	Allocate(size, align uint32) (Handle, error)

	// Free returns a handle's block to the free list, coalescing with its
	// address neighbours.
	Free(h Handle) error

	// Stats returns a snapshot of the allocator's accounting.
	Stats() Stats
}

// Option configures an Allocator at construction.
type Option func(*Allocator)

// WithChecks enables the generation table: every live handle is recorded and
// Free rejects stale, duplicate or forged handles with ErrDoubleFree or
// ErrBadHandle instead of corrupting the free list.
func WithChecks(enabled bool) Option {
	return func(a *Allocator) { a.checks = enabled }
}

// WithName labels the allocator in debug logs and state dumps.
func WithName(name string) Option {
	return func(a *Allocator) { a.name = name }
}

// liveBlock is the generation-table record for one live handle.
type liveBlock struct {
	pad  uint32
	size uint32
	gen  uint32
}

// allocatorStats holds internal counters.
type allocatorStats struct {
	AllocCalls       int // Total Allocate() calls
	AllocFailures    int // Allocate() calls that returned ErrNoSpace
	FreeCalls        int // Successful Free() calls
	RejectedFrees    int // Free() calls rejected with an error
	Splits           int // Blocks split, tail kept on the free list
	SlackAbsorbed    int // Allocations that absorbed a sub-header remainder
	CoalesceForward  int // Freed block merged with its successor
	CoalesceBackward int // Freed block merged into its predecessor
}
