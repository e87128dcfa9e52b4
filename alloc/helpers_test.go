package alloc

import (
	"cmp"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/freelist/internal/testutil"
)

// testArenaAlign is the base alignment of every test arena, so padding
// expectations do not depend on where the Go heap placed the buffer.
const testArenaAlign = 64

// ============================================================================
// Test Helpers
// ============================================================================

// alignedRegion returns a size-byte region whose base address is a multiple of align.
func alignedRegion(t testing.TB, size, align int) []byte {
	t.Helper()
	return testutil.AlignedRegion(t, size, align)
}

// newTestAllocator builds an allocator over a fresh 64-byte-aligned arena.
func newTestAllocator(t testing.TB, size int, opts ...Option) *Allocator {
	t.Helper()
	return New(alignedRegion(t, size, testArenaAlign), opts...)
}

// mustAllocate allocates and fails the test on error.
func mustAllocate(t testing.TB, a *Allocator, size, align uint32) Handle {
	t.Helper()
	h, err := a.Allocate(size, align)
	require.NoError(t, err, "Allocate(%d, %d)", size, align)
	return h
}

type freeBlock struct {
	off, size uint32
}

// freeBlocks returns the free list as (offset, size) pairs.
func freeBlocks(a *Allocator) []freeBlock {
	var out []freeBlock
	a.Walk(func(off, size uint32) bool {
		out = append(out, freeBlock{off, size})
		return true
	})
	return out
}

// assertInvariants checks ordering, minimum size, coalescing, conservation
// and that free and live blocks tile the arena exactly.
func assertInvariants(t testing.TB, a *Allocator, live []Handle) {
	t.Helper()

	blocks := freeBlocks(a)
	var freeBytes uint64
	for i, b := range blocks {
		require.GreaterOrEqual(t, b.size, uint32(minBlockSize), "free block #%d below minimum", i)
		require.LessOrEqual(t, uint64(b.off)+uint64(b.size), uint64(a.Len()), "free block #%d out of bounds", i)
		if i > 0 {
			prev := blocks[i-1]
			prevEnd := uint64(prev.off) + uint64(prev.size)
			require.Less(t, prevEnd, uint64(b.off),
				"free blocks #%d and #%d out of order, overlapping or touching", i-1, i)
		}
		freeBytes += uint64(b.size)
	}

	var liveBytes uint64
	type span struct{ start, end uint64 }
	spans := make([]span, 0, len(blocks)+len(live))
	for _, b := range blocks {
		spans = append(spans, span{uint64(b.off), uint64(b.off) + uint64(b.size)})
	}
	for _, h := range live {
		liveBytes += uint64(h.Size())
		spans = append(spans, span{uint64(h.Start()), uint64(h.Start()) + uint64(h.Size())})
	}
	require.Equal(t, uint64(a.Len()), freeBytes+liveBytes, "conservation: free + live != arena")

	slices.SortFunc(spans, func(x, y span) int { return cmp.Compare(x.start, y.start) })
	var pos uint64
	for _, s := range spans {
		require.Equal(t, pos, s.start, "gap or overlap at 0x%X", pos)
		pos = s.end
	}
	require.Equal(t, uint64(a.Len()), pos)

	s := a.Stats()
	require.Equal(t, len(live), s.LiveAllocs)
	require.Equal(t, liveBytes, s.LiveBytes)
}

// requireContractPanic asserts fn panics with a *ContractError for op.
func requireContractPanic(t testing.TB, op string, fn func()) *ContractError {
	t.Helper()
	var got *ContractError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected panic from %s", op)
			ce, ok := r.(*ContractError)
			require.True(t, ok, "panic value %T is not *ContractError", r)
			got = ce
		}()
		fn()
	}()
	require.Equal(t, op, got.Op)
	return got
}

// without returns live minus h.
func without(live []Handle, h Handle) []Handle {
	return slices.DeleteFunc(slices.Clone(live), func(x Handle) bool { return x == h })
}
