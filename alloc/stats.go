package alloc

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/freelist/internal/format"
)

// Stats is a snapshot of an allocator's space accounting and counters.
type Stats struct {
	ArenaSize   uint64 // Total arena bytes
	FreeBytes   uint64 // Sum of free block sizes
	FreeBlocks  int    // Number of free-list entries
	LargestFree uint32 // Largest single free block
	LiveAllocs  int    // Outstanding handles
	LiveBytes   uint64 // Sum of Handle.Size over outstanding handles

	AllocCalls       int // Allocate calls
	AllocFailures    int // Allocate calls that returned ErrNoSpace
	FreeCalls        int // Successful frees
	RejectedFrees    int // Frees rejected with an error
	Splits           int // Blocks split on allocation
	SlackAbsorbed    int // Allocations that absorbed a sub-header remainder
	CoalesceForward  int // Frees merged with the following free block
	CoalesceBackward int // Frees merged into the preceding free block
}

// Fragmentation returns 1 - LargestFree/FreeBytes: 0 when all free space is
// one block (or there is none), approaching 1 as free space scatters.
func (s Stats) Fragmentation() float64 {
	if s.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(s.LargestFree)/float64(s.FreeBytes)
}

// Stats walks the free list and returns the current accounting.
func (a *Allocator) Stats() Stats {
	s := Stats{
		ArenaSize:        uint64(len(a.mem)),
		LiveAllocs:       a.liveCount,
		LiveBytes:        a.liveBytes,
		AllocCalls:       a.stats.AllocCalls,
		AllocFailures:    a.stats.AllocFailures,
		FreeCalls:        a.stats.FreeCalls,
		RejectedFrees:    a.stats.RejectedFrees,
		Splits:           a.stats.Splits,
		SlackAbsorbed:    a.stats.SlackAbsorbed,
		CoalesceForward:  a.stats.CoalesceForward,
		CoalesceBackward: a.stats.CoalesceBackward,
	}
	a.Walk(func(_, size uint32) bool {
		s.FreeBytes += uint64(size)
		s.FreeBlocks++
		s.LargestFree = max(s.LargestFree, size)
		return true
	})
	return s
}

// Walk calls fn for every free block in list (address) order until fn
// returns false. fn must not allocate or free.
func (a *Allocator) Walk(fn func(off, size uint32) bool) {
	// A corrupted list could cycle; no valid list has more nodes than
	// arena/minBlockSize.
	limit := len(a.mem)/minBlockSize + 1
	for cur := a.head; cur != invalid && limit > 0; limit-- {
		n := format.ReadNode(a.mem, cur)
		if !fn(cur, n.Size) {
			return
		}
		cur = n.Next
	}
}

// FreeSizes returns the sizes of the free blocks in address order.
func (a *Allocator) FreeSizes() []uint32 {
	var sizes []uint32
	a.Walk(func(_, size uint32) bool {
		sizes = append(sizes, size)
		return true
	})
	return sizes
}

// String renders the free list as its block sizes, e.g. "[16 16]".
func (a *Allocator) String() string {
	return fmt.Sprint(a.FreeSizes())
}

func (a *Allocator) freeBytes() uint64 {
	var n uint64
	a.Walk(func(_, size uint32) bool {
		n += uint64(size)
		return true
	})
	return n
}

func (a *Allocator) largestFree() uint32 {
	var m uint32
	a.Walk(func(_, size uint32) bool {
		m = max(m, size)
		return true
	})
	return m
}

// PrintStats writes a human-readable report of s to w, with digit grouping.
func PrintStats(w io.Writer, s Stats) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "=== ALLOCATOR STATISTICS ===\n")
	p.Fprintf(w, "Arena:            %d bytes\n", s.ArenaSize)
	p.Fprintf(w, "Free:             %d bytes in %d blocks (largest %d)\n",
		s.FreeBytes, s.FreeBlocks, s.LargestFree)
	p.Fprintf(w, "Live:             %d bytes in %d allocations\n", s.LiveBytes, s.LiveAllocs)
	p.Fprintf(w, "Fragmentation:    %.1f%%\n", s.Fragmentation()*100)
	p.Fprintf(w, "\nOperations:\n")
	p.Fprintf(w, "  Allocate:       %d (%d failed)\n", s.AllocCalls, s.AllocFailures)
	p.Fprintf(w, "  Free:           %d (%d rejected)\n", s.FreeCalls, s.RejectedFrees)
	p.Fprintf(w, "  Splits:         %d\n", s.Splits)
	p.Fprintf(w, "  Slack absorbed: %d\n", s.SlackAbsorbed)
	p.Fprintf(w, "  Coalesce:       %d forward, %d backward\n", s.CoalesceForward, s.CoalesceBackward)
}
