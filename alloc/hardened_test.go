package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksRejectStaleHandleAfterReuse(t *testing.T) {
	a := newTestAllocator(t, 64, WithChecks(true))

	h1 := mustAllocate(t, a, 16, 1)
	a.Deallocate(h1)
	h2 := mustAllocate(t, a, 16, 1)
	require.Equal(t, h1.Offset(), h2.Offset(), "block is reused at the same offset")
	require.NotEqual(t, h1.Generation(), h2.Generation())

	require.ErrorIs(t, a.Free(h1), ErrDoubleFree)
	assertInvariants(t, a, []Handle{h2})

	require.NoError(t, a.Free(h2))
	require.ErrorIs(t, a.Free(h2), ErrDoubleFree)
	assertInvariants(t, a, nil)
}

func TestChecksRejectForgedHandles(t *testing.T) {
	a := newTestAllocator(t, 128, WithChecks(true))
	h := mustAllocate(t, a, 32, 1)

	resized := h
	resized.size = 16
	require.ErrorIs(t, a.Free(resized), ErrBadHandle)

	future := h
	future.gen = h.gen + 100
	require.ErrorIs(t, a.Free(future), ErrBadHandle)

	oversized := h
	oversized.size = 1 << 20
	require.ErrorIs(t, a.Free(oversized), ErrBadHandle)

	assert.Equal(t, 3, a.Stats().RejectedFrees)
	assertInvariants(t, a, []Handle{h})
	require.NoError(t, a.Free(h))
}

func TestChecksResetInvalidatesHandles(t *testing.T) {
	a := newTestAllocator(t, 128, WithChecks(true))
	h := mustAllocate(t, a, 32, 8)

	a.Reset()
	require.ErrorIs(t, a.Free(h), ErrDoubleFree)

	ce := requireContractPanic(t, "Deallocate", func() { a.Deallocate(h) })
	assert.ErrorIs(t, ce, ErrDoubleFree)
	assertInvariants(t, a, nil)
}

func TestChecksDoNotChangeLayout(t *testing.T) {
	plain := newTestAllocator(t, 256)
	checked := newTestAllocator(t, 256, WithChecks(true))

	for _, a := range []*Allocator{plain, checked} {
		x := mustAllocate(t, a, 40, 8)
		y := mustAllocate(t, a, 24, 16)
		_ = mustAllocate(t, a, 8, 1)
		a.Deallocate(x)
		a.Deallocate(y)
	}
	require.Equal(t, freeBlocks(plain), freeBlocks(checked))
}
