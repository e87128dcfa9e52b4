package alloc

import (
	"unsafe"

	"github.com/joshuapare/freelist/internal/buf"
)

// Bytes returns the usable bytes of h: Len() bytes starting at Offset(). The
// slice aliases the arena and has its capacity clipped, so appends cannot
// reach a neighbouring block. It is valid until h is freed or the allocator
// is Reset.
//
// Bytes panics with a *ContractError if h was not produced by this allocator.
func (a *Allocator) Bytes(h Handle) []byte {
	if h.owner != a.id {
		panic(&ContractError{Op: "Bytes", Msg: "foreign handle", Err: ErrBadHandle})
	}
	b, ok := buf.Slice(a.mem, int(h.off), int(h.Len()))
	if !ok {
		panic(&ContractError{Op: "Bytes", Msg: "handle outside arena", Err: ErrBadHandle})
	}
	return b
}

// View returns a typed pointer to the start of h's usable bytes.
//
// T must not contain Go pointers: the arena is plain bytes and the garbage
// collector does not scan it. View panics with a *ContractError if T does not
// fit in h.Len() bytes or if the data address is not aligned for T; allocate
// with align = unsafe.Alignof(T) to satisfy the latter.
func View[T any](a *Allocator, h Handle) *T {
	var zero T
	b := a.Bytes(h)
	if uintptr(len(b)) < unsafe.Sizeof(zero) {
		panic(contractf("View", "type of %d bytes does not fit in %d-byte allocation",
			unsafe.Sizeof(zero), len(b)))
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		panic(contractf("View", "address 0x%X not aligned to %d", uintptr(p), unsafe.Alignof(zero)))
	}
	return (*T)(p)
}
