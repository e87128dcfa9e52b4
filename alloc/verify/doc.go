// Package verify provides invariant checks for alloc.Allocator.
//
// It is primarily used in tests and by flctl's --verify mode to prove that a
// sequence of allocations and frees left the allocator consistent.
//
// Validation categories:
//   - FreeList: strict address order, in-bounds nodes, no block below the
//     8-byte minimum, no two free blocks touching (they must have merged)
//   - Conservation: free bytes + live handle sizes == arena size
//   - Coverage: free blocks and live blocks tile the arena with no gaps or
//     overlaps
//
// # Quick Start
//
//	if err := verify.AllInvariants(a, live); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	    }
//	}
//
// live is the caller's set of outstanding handles; the allocator does not
// keep one unless built WithChecks, and the checks here do not rely on it.
package verify
