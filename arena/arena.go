// Package arena provides byte regions for the free-list allocator to manage.
//
// The allocator borrows its arena and never frees it; an Arena is the owner.
// Regions come from the Go heap (New), an anonymous memory mapping (Map) or a
// shared file mapping (MapFile), and all guarantee a base address aligned to
// Alignment. On platforms without mmap the mapped variants fall back to heap
// memory.
package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/freelist/internal/format"
)

// Alignment is the base-address alignment of every Arena. It satisfies the
// allocator's node-header requirement and keeps cache-line sized requests
// padding-free at offset 0.
const Alignment = 64

var (
	// ErrTooLarge indicates a size beyond the allocator's 32-bit offset range.
	ErrTooLarge = errors.New("arena: size exceeds 4 GiB - 1")

	// ErrTooSmall indicates a size that cannot hold a single free-node header.
	ErrTooSmall = errors.New("arena: size below minimum")

	// ErrClosed indicates an operation on a closed Arena.
	ErrClosed = errors.New("arena: closed")
)

// Arena owns one contiguous byte region.
type Arena struct {
	data   []byte // aligned view handed to the allocator
	raw    []byte // backing memory (the mapping, for Map)
	path   string // backing file, for MapFile
	mapped bool
	shared bool // file mapping: writes reach path
	closed bool
}

// New returns a heap-backed arena of size bytes whose base is Alignment-aligned.
func New(size int) (*Arena, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	raw := make([]byte, size+Alignment)
	pad := int(format.Padding(uintptr(unsafe.Pointer(&raw[0])), Alignment))
	return &Arena{
		data: raw[pad : pad+size : pad+size],
		raw:  raw,
	}, nil
}

func checkSize(size int) error {
	switch {
	case size < format.MinArenaSize:
		return fmt.Errorf("%w: %d < %d", ErrTooSmall, size, format.MinArenaSize)
	case uint64(size) > format.MaxArenaSize:
		return fmt.Errorf("%w: %d", ErrTooLarge, size)
	}
	return nil
}

// Bytes returns the region. It is nil after Close.
func (a *Arena) Bytes() []byte { return a.data }

// Len returns the region size in bytes, or 0 after Close.
func (a *Arena) Len() int { return len(a.data) }

// Mapped reports whether the region is an anonymous memory mapping.
func (a *Arena) Mapped() bool { return a.mapped }

// Path returns the backing file of a MapFile arena, or "".
func (a *Arena) Path() string { return a.path }

// Close releases the region, flushing a file-backed arena first. Allocators
// and handles over it must not be used afterwards. A second Close returns
// ErrClosed.
func (a *Arena) Close() error {
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	err := a.release()
	a.data = nil
	a.raw = nil
	return err
}
