package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates that no free block is large enough for the request.
	// The arena may still hold enough free bytes in total (external fragmentation).
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrBadHandle indicates a handle that this allocator did not produce, or
	// whose recorded geometry does not fit the arena.
	ErrBadHandle = errors.New("alloc: bad handle")

	// ErrDoubleFree indicates a handle whose block is already free, either
	// detected by the generation table (WithChecks) or because the block
	// overlaps a free-list entry.
	ErrDoubleFree = errors.New("alloc: block already free")
)

// ContractError is the panic value for caller bugs: an oversized or misaligned
// arena, a request below the minimum block size, a non power-of-two alignment,
// or an invalid handle passed to Deallocate. These are never returned as errors.
type ContractError struct {
	Op  string // operation that detected the violation
	Msg string // what was violated
	Err error  // underlying sentinel, if any
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alloc: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("alloc: %s: %s", e.Op, e.Msg)
}

func (e *ContractError) Unwrap() error { return e.Err }

func contractf(op, format string, args ...any) *ContractError {
	return &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
