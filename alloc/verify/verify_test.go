package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/arena"
	"github.com/joshuapare/freelist/internal/format"
	"github.com/joshuapare/freelist/internal/testutil"
)

// newFragmented returns an allocator over a 64-byte arena with free blocks
// at [0,16) and [32,64) and one live handle at [16,32).
func newFragmented(t *testing.T) (*alloc.Allocator, []byte, alloc.Handle) {
	t.Helper()
	ar, err := arena.New(64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ar.Close() })

	region := ar.Bytes()
	a := alloc.New(region)
	h0, err := a.Allocate(16, 1)
	require.NoError(t, err)
	h1, err := a.Allocate(16, 1)
	require.NoError(t, err)
	h2, err := a.Allocate(16, 1)
	require.NoError(t, err)
	a.Deallocate(h0)
	a.Deallocate(h2)
	require.Equal(t, []uint32{16, 32}, a.FreeSizes())
	return a, region, h1
}

func requireValidation(t *testing.T, err error, typ, msg string) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "error %T is not *ValidationError", err)
	assert.Equal(t, typ, verr.Type)
	assert.Contains(t, verr.Message, msg)
	return verr
}

func TestAllInvariantsPass(t *testing.T) {
	a, _, live := newFragmented(t)
	require.NoError(t, AllInvariants(a, []alloc.Handle{live}))
}

func TestFreeListDetectsUncoalescedNeighbours(t *testing.T) {
	a, region, _ := newFragmented(t)
	format.PutSize(region, 0, 32)

	verr := requireValidation(t, FreeList(a), "FreeList", "not coalesced")
	assert.Equal(t, 32, verr.Offset)
	assert.Equal(t, 0, verr.Details["previous"])
}

func TestFreeListDetectsOverlap(t *testing.T) {
	a, region, _ := newFragmented(t)
	format.PutSize(region, 0, 40)
	requireValidation(t, FreeList(a), "FreeList", "overlaps")
}

func TestFreeListDetectsUndersizedBlock(t *testing.T) {
	a, region, _ := newFragmented(t)
	format.PutSize(region, 0, 4)
	verr := requireValidation(t, FreeList(a), "FreeList", "below minimum")
	assert.Equal(t, 0, verr.Offset)
}

func TestFreeListDetectsOrderAndBounds(t *testing.T) {
	a, region, _ := newFragmented(t)
	// Point the second node back at the first.
	format.PutNext(region, 32, 0)
	requireValidation(t, FreeList(a), "FreeList", "out of order")

	b, region2, _ := newFragmented(t)
	format.PutSize(region2, 32, 64)
	requireValidation(t, FreeList(b), "FreeList", "beyond arena")
}

func TestConservationAndCoverage(t *testing.T) {
	a, _, live := newFragmented(t)

	verr := requireValidation(t, Conservation(a, nil), "Conservation", "arena 64")
	assert.Equal(t, -1, verr.Offset)
	assert.Equal(t, uint64(48), verr.Details["free"])

	requireValidation(t, Coverage(a, nil), "Coverage", "gap")
	requireValidation(t, Coverage(a, []alloc.Handle{live, live}), "Coverage", "overlaps")
	require.NoError(t, Coverage(a, []alloc.Handle{live}))
}

func TestCoverageRejectsOutOfRangeHandle(t *testing.T) {
	a, _, live := newFragmented(t)

	ar, err := arena.New(4096)
	require.NoError(t, err)
	defer ar.Close()
	big := alloc.New(ar.Bytes())
	_, err = big.Allocate(4000, 1)
	require.NoError(t, err)
	far, err := big.Allocate(64, 1) // [4000, 4064): past the 64-byte arena
	require.NoError(t, err)

	verr := requireValidation(t, Coverage(a, []alloc.Handle{live, far}), "Coverage", "out of range")
	assert.Equal(t, int(far.Start()), verr.Offset)
}

func TestRandomWorkloadPassesAllInvariants(t *testing.T) {
	ar, err := arena.New(1 << 12)
	require.NoError(t, err)
	defer ar.Close()

	a := alloc.New(ar.Bytes(), alloc.WithChecks(true))
	w := testutil.NewWorkload(7)
	w.MaxSize = 307
	w.MaxAlignLog = 5
	w.FreePercent = 50
	var live []alloc.Handle

	for step := range 800 {
		st := w.Next(len(live))
		if st.Free {
			i := st.Victim
			require.NoError(t, a.Free(live[i]))
			live = append(live[:i], live[i+1:]...)
		} else if h, err := a.Allocate(st.Size, st.Align); err == nil {
			live = append(live, h)
		} else {
			require.ErrorIs(t, err, alloc.ErrNoSpace)
		}
		require.NoError(t, AllInvariants(a, live), "step %d", step)
	}
}
