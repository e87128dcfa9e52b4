package alloc

import (
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/freelist/internal/format"
)

const (
	// minBlockSize is the smallest block the allocator hands out or keeps on
	// the free list: one node header. A remainder below this is absorbed into
	// the allocation instead of becoming an unusable fragment.
	minBlockSize = format.NodeHeaderSize

	// invalid terminates the free list.
	invalid = format.InvalidOffset
)

// allocatorIDs hands out owner ids so handles from one allocator are
// rejected by another.
var allocatorIDs atomic.Uint32

// Allocator is a first-fit, coalescing free-list allocator over a borrowed
// byte region.
//
// The free list lives inside the arena itself: every free block starts with an
// 8-byte node header {next, size}, and the list is kept sorted by offset so
// that adjacent free blocks are always list neighbours and can be merged on
// Free by looking only at the immediate predecessor and successor.
//
// Allocator is not safe for concurrent use. Wrap it in Locked or confine it
// to one goroutine.
type Allocator struct {
	mem  []byte  // borrowed arena, never reallocated
	base uintptr // address of mem[0], for address-dependent padding
	head uint32  // offset of the first free node, or invalid

	id     uint32
	name   string
	checks bool

	gen  uint32               // last generation handed out
	live map[uint32]liveBlock // data offset -> record (WithChecks only)

	liveCount int
	liveBytes uint64

	stats allocatorStats
}

// New binds an allocator to region and writes a single free node spanning
// the whole of it.
//
// The region is borrowed, not owned: the caller keeps it alive for as long as
// the allocator and its handles are in use, and releases it afterwards.
//
// New panics with a *ContractError if the region is larger than 4 GiB - 1,
// smaller than one node header, or if its base address is not 4-byte aligned.
func New(region []byte, opts ...Option) *Allocator {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(region)))
	if err := checkArena(uint64(len(region)), base); err != nil {
		panic(err)
	}

	a := &Allocator{
		mem:  region,
		base: base,
		id:   allocatorIDs.Add(1),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.checks {
		a.live = make(map[uint32]liveBlock)
	}

	a.reset()
	a.tracef("new arena: %d bytes at 0x%X (checks=%v)", len(region), base, a.checks)
	return a
}

// checkArena validates the construction contract.
func checkArena(size uint64, base uintptr) *ContractError {
	switch {
	case size > format.MaxArenaSize:
		return contractf("New", "arena size %d exceeds %d", size, uint64(format.MaxArenaSize))
	case size < format.MinArenaSize:
		return contractf("New", "arena size %d below minimum %d", size, format.MinArenaSize)
	case !format.IsAligned(base, format.NodeAlignment):
		return contractf("New", "arena base 0x%X not aligned to %d", base, format.NodeAlignment)
	}
	return nil
}

// Reset returns the whole arena to a single free block. Every outstanding
// handle becomes invalid; with WithChecks enabled, freeing one afterwards
// reports ErrDoubleFree.
func (a *Allocator) Reset() {
	a.reset()
	if a.checks {
		clear(a.live)
	}
	a.liveCount = 0
	a.liveBytes = 0
	a.tracef("reset")
}

func (a *Allocator) reset() {
	format.PutNode(a.mem, 0, format.Node{Next: invalid, Size: uint32(len(a.mem))})
	a.head = 0
}

// Len returns the arena size in bytes.
func (a *Allocator) Len() int { return len(a.mem) }

// Allocate reserves size bytes whose first byte is aligned to align, taking
// the first free block (in address order) that fits.
//
// Padding is computed from the candidate's absolute address, so the same
// request may need different padding at different blocks. The padding bytes
// belong to the allocation and are returned to the free list with it.
//
// When the remainder after the allocation is at least one node header, the
// block is split and the tail stays on the free list at the same list
// position. A smaller remainder is absorbed into the allocation and shows up
// in Handle.Size and Handle.Len.
//
// Allocate returns ErrNoSpace when no single free block is large enough. It
// panics with a *ContractError if size is below the 8-byte minimum block or
// align is not a power of two.
func (a *Allocator) Allocate(size, align uint32) (Handle, error) {
	a.stats.AllocCalls++

	if size < minBlockSize {
		panic(contractf("Allocate", "size %d below minimum block size %d", size, minBlockSize))
	}
	if !format.IsPow2(uint64(align)) {
		panic(contractf("Allocate", "alignment %d is not a power of two", align))
	}

	prev := uint32(invalid)
	cur := a.head
	for cur != invalid {
		node := format.ReadNode(a.mem, cur)
		pad := format.Padding(a.base+uintptr(cur), align)
		// 64-bit so a large pad or size cannot wrap into a false fit.
		need := uint64(size) + uint64(pad)
		avail := uint64(node.Size)

		switch {
		case avail == need:
			a.link(prev, node.Next)
			return a.handOut(cur, pad, node.Size), nil

		case avail > need:
			rest := node.Size - uint32(need)
			if rest < minBlockSize {
				// Too small to ever hold a node header: hand out the whole block.
				a.stats.SlackAbsorbed++
				a.link(prev, node.Next)
				return a.handOut(cur, pad, node.Size), nil
			}

			// Split: the tail becomes the free node, in the same list position.
			a.stats.Splits++
			tail := cur + uint32(need)
			format.PutNode(a.mem, tail, format.Node{Next: node.Next, Size: rest})
			a.link(prev, tail)
			return a.handOut(cur, pad, uint32(need)), nil
		}

		prev = cur
		cur = node.Next
	}

	a.stats.AllocFailures++
	if logAlloc {
		a.tracef("no fit: size=%d align=%d free=%d largest=%d", size, align, a.freeBytes(), a.largestFree())
	}
	if debugAlloc {
		a.DumpState(debugWriter{})
	}
	return Handle{}, ErrNoSpace
}

// link points prev's next field (or head, when prev is invalid) at to.
func (a *Allocator) link(prev, to uint32) {
	if prev == invalid {
		a.head = to
		return
	}
	format.PutNext(a.mem, prev, to)
}

// handOut builds the handle for a block taken off the free list.
func (a *Allocator) handOut(start, pad, size uint32) Handle {
	a.gen++
	h := Handle{
		off:   start + pad,
		pad:   pad,
		size:  size,
		gen:   a.gen,
		owner: a.id,
	}
	if a.checks {
		a.live[h.off] = liveBlock{pad: pad, size: size, gen: h.gen}
	}
	a.liveCount++
	a.liveBytes += uint64(size)

	debugLogf("alloc: start=%d pad=%d size=%d gen=%d", start, pad, size, h.gen)
	a.tracef("alloc: block [0x%X..0x%X) data=0x%X pad=%d", start, uint64(start)+uint64(size), h.off, pad)
	return h
}

// Deallocate returns h's block to the free list. It is the assertion form of
// Free: a handle Free would reject is a caller bug, and Deallocate panics with
// a *ContractError wrapping the reason.
func (a *Allocator) Deallocate(h Handle) {
	if err := a.Free(h); err != nil {
		panic(&ContractError{Op: "Deallocate", Msg: "invalid handle", Err: err})
	}
}

// Free returns h's block to the free list and merges it with an address-
// adjacent free predecessor and/or successor.
//
// Free always rejects handles from another allocator and handles whose block
// does not fit the arena (ErrBadHandle), and blocks that overlap a free-list
// entry (ErrDoubleFree). With WithChecks enabled it also rejects stale and
// duplicate handles whose block has since been reused. Without checks,
// freeing a handle twice after its block was handed out again corrupts the
// allocator; that remains the caller's obligation.
func (a *Allocator) Free(h Handle) error {
	if err := a.checkHandle(h); err != nil {
		a.stats.RejectedFrees++
		return err
	}

	start := h.Start()
	size := h.size

	if a.head == invalid {
		// Nothing else is free, so nothing to merge with.
		format.PutNode(a.mem, start, format.Node{Next: invalid, Size: size})
		a.head = start
		a.release(h)
		return nil
	}

	// Find the neighbours: succ is the first node at or after start.
	prev := uint32(invalid)
	succ := a.head
	for succ != invalid && succ < start {
		prev = succ
		succ = format.ReadNode(a.mem, succ).Next
	}

	end := uint64(start) + uint64(size)
	if succ != invalid && (succ == start || end > uint64(succ)) {
		a.stats.RejectedFrees++
		return ErrDoubleFree
	}
	var pn format.Node
	if prev != invalid {
		pn = format.ReadNode(a.mem, prev)
		if pn.End(prev) > uint64(start) {
			a.stats.RejectedFrees++
			return ErrDoubleFree
		}
	}

	// Successor first, so the freed block's size and next are final before
	// the predecessor looks at it.
	next := succ
	if succ != invalid && end == uint64(succ) {
		sn := format.ReadNode(a.mem, succ)
		size += sn.Size
		next = sn.Next
		a.stats.CoalesceForward++
	}

	switch {
	case prev == invalid:
		format.PutNode(a.mem, start, format.Node{Next: next, Size: size})
		a.head = start
	case pn.End(prev) == uint64(start):
		// Predecessor absorbs the freed block and inherits its next link.
		format.PutNode(a.mem, prev, format.Node{Next: next, Size: pn.Size + size})
		a.stats.CoalesceBackward++
	default:
		format.PutNode(a.mem, start, format.Node{Next: next, Size: size})
		format.PutNext(a.mem, prev, start)
	}

	a.release(h)
	return nil
}

// checkHandle validates h before any arena bytes are touched.
func (a *Allocator) checkHandle(h Handle) error {
	if h.owner != a.id || h.size < minBlockSize || h.pad > h.off || h.pad >= h.size {
		return ErrBadHandle
	}
	if uint64(h.Start())+uint64(h.size) > uint64(len(a.mem)) {
		return ErrBadHandle
	}
	if !a.checks {
		return nil
	}

	rec, ok := a.live[h.off]
	switch {
	case ok && rec.gen == h.gen:
		if rec.pad != h.pad || rec.size != h.size {
			return ErrBadHandle
		}
		return nil
	case h.gen == 0 || h.gen > a.gen:
		// Never issued by this allocator.
		return ErrBadHandle
	default:
		// Issued, but no longer live (freed, possibly reused since).
		return ErrDoubleFree
	}
}

// release drops h from the live accounting after its block is back on the list.
func (a *Allocator) release(h Handle) {
	if a.checks {
		delete(a.live, h.off)
	}
	a.liveCount--
	a.liveBytes -= uint64(h.size)
	a.stats.FreeCalls++

	debugLogf("free: start=%d size=%d gen=%d", h.Start(), h.size, h.gen)
	a.tracef("free: block [0x%X..0x%X)", h.Start(), uint64(h.Start())+uint64(h.size))
}

// debugWriter sends DumpState output to stderr through debugLogf's channel.
type debugWriter struct{}

func (debugWriter) Write(p []byte) (int, error) {
	debugLogf("%s", p)
	return len(p), nil
}

var _ Interface = (*Allocator)(nil)
