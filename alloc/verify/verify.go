package verify

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/internal/buf"
	"github.com/joshuapare/freelist/internal/format"
)

// ValidationError describes the first invariant violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates every invariant in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(a *alloc.Allocator, live []alloc.Handle) error {
	if err := FreeList(a); err != nil {
		return err
	}
	if err := Conservation(a, live); err != nil {
		return err
	}
	return Coverage(a, live)
}

// FreeList walks the free list and checks ordering, bounds, minimum size and
// the coalescing invariant.
func FreeList(a *alloc.Allocator) error {
	var (
		verr    *ValidationError
		prevOff = -1
		prevEnd uint64
		count   int
	)
	arena := uint64(a.Len())
	maxNodes := a.Len() / format.NodeHeaderSize

	a.Walk(func(off, size uint32) bool {
		count++
		end := uint64(off) + uint64(size)
		switch {
		case count > maxNodes:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("more than %d nodes (cycle?)", maxNodes),
				Offset:  int(off),
			}
		case size < format.NodeHeaderSize:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("block of %d bytes below minimum %d", size, format.NodeHeaderSize),
				Offset:  int(off),
			}
		case end > arena:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("block end 0x%X beyond arena size 0x%X", end, arena),
				Offset:  int(off),
			}
		case prevOff >= 0 && int(off) <= prevOff:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("out of order: follows node at 0x%X", prevOff),
				Offset:  int(off),
			}
		case prevOff >= 0 && uint64(off) < prevEnd:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("overlaps node at 0x%X ending 0x%X", prevOff, prevEnd),
				Offset:  int(off),
			}
		case prevOff >= 0 && uint64(off) == prevEnd:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("touches node at 0x%X but was not coalesced", prevOff),
				Offset:  int(off),
				Details: map[string]any{"previous": prevOff},
			}
		}
		if verr != nil {
			return false
		}
		prevOff = int(off)
		prevEnd = end
		return true
	})

	if verr != nil {
		return verr
	}
	return nil
}

// Conservation checks that free bytes plus the reserved size of every live
// handle equal the arena size.
func Conservation(a *alloc.Allocator, live []alloc.Handle) error {
	s := a.Stats()
	var liveBytes uint64
	for _, h := range live {
		liveBytes += uint64(h.Size())
	}
	if s.FreeBytes+liveBytes != s.ArenaSize {
		return &ValidationError{
			Type: "Conservation",
			Message: fmt.Sprintf("free %d + live %d = %d, arena %d",
				s.FreeBytes, liveBytes, s.FreeBytes+liveBytes, s.ArenaSize),
			Offset: -1,
			Details: map[string]any{
				"free":  s.FreeBytes,
				"live":  liveBytes,
				"arena": s.ArenaSize,
			},
		}
	}
	if s.LiveBytes != liveBytes || s.LiveAllocs != len(live) {
		return &ValidationError{
			Type: "Conservation",
			Message: fmt.Sprintf("allocator reports %d live bytes in %d handles, caller holds %d in %d",
				s.LiveBytes, s.LiveAllocs, liveBytes, len(live)),
			Offset: -1,
		}
	}
	return nil
}

type span struct {
	start, end uint64
	free       bool
}

// Coverage checks that free blocks and live blocks tile [0, arena) exactly.
func Coverage(a *alloc.Allocator, live []alloc.Handle) error {
	spans := make([]span, 0, len(live)+8)
	a.Walk(func(off, size uint32) bool {
		spans = append(spans, span{uint64(off), uint64(off) + uint64(size), true})
		return true
	})
	for _, h := range live {
		if _, err := buf.CheckRange(a.Len(), int(h.Start()), int(h.Size())); err != nil {
			return &ValidationError{
				Type:    "Coverage",
				Message: "live block out of range: " + err.Error(),
				Offset:  int(h.Start()),
			}
		}
		spans = append(spans, span{uint64(h.Start()), uint64(h.Start()) + uint64(h.Size()), false})
	}
	slices.SortFunc(spans, func(x, y span) int { return cmp.Compare(x.start, y.start) })

	var pos uint64
	for _, s := range spans {
		switch {
		case s.start > pos:
			return &ValidationError{
				Type:    "Coverage",
				Message: fmt.Sprintf("gap of %d bytes not owned by any block", s.start-pos),
				Offset:  int(pos),
			}
		case s.start < pos:
			kind := "live"
			if s.free {
				kind = "free"
			}
			return &ValidationError{
				Type:    "Coverage",
				Message: fmt.Sprintf("%s block overlaps previous block ending 0x%X", kind, pos),
				Offset:  int(s.start),
			}
		}
		pos = s.end
	}
	if pos != uint64(a.Len()) {
		return &ValidationError{
			Type:    "Coverage",
			Message: fmt.Sprintf("blocks end at 0x%X, arena ends at 0x%X", pos, a.Len()),
			Offset:  int(pos),
		}
	}
	return nil
}
