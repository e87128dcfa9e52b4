package alloc

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/freelist/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for allocation logging - controlled by FREELIST_LOG_ALLOC env var.
var logAlloc = os.Getenv("FREELIST_LOG_ALLOC") != ""

// debugLogf prints debug messages if debugAlloc is enabled.
func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}

// tracef prints allocation events when FREELIST_LOG_ALLOC is set.
func (a *Allocator) tracef(format string, args ...any) {
	if !logAlloc {
		return
	}
	fmt.Fprintf(os.Stderr, "[ALLOC] %s: "+format+"\n", append([]any{a.label()}, args...)...)
}

func (a *Allocator) label() string {
	if a.name != "" {
		return a.name
	}
	return fmt.Sprintf("arena#%d", a.id)
}

// DumpState writes the free list, one node per line, followed by the live
// accounting. Intended for debugging and the flctl dump command.
func (a *Allocator) DumpState(w io.Writer) {
	fmt.Fprintf(w, "=== FREE LIST %s (arena=%d bytes, head=%s) ===\n",
		a.label(), len(a.mem), fmtOffset(a.head))
	i := 0
	a.Walk(func(off, size uint32) bool {
		next := format.ReadNode(a.mem, off).Next
		fmt.Fprintf(w, "  #%-3d [0x%08X..0x%08X) size=%-8d next=%s\n",
			i, off, uint64(off)+uint64(size), size, fmtOffset(next))
		i++
		return true
	})
	if i == 0 {
		fmt.Fprintln(w, "  (empty)")
	}
	fmt.Fprintf(w, "live: %d allocations, %d bytes\n", a.liveCount, a.liveBytes)
}

func fmtOffset(off uint32) string {
	if off == format.InvalidOffset {
		return "INVALID"
	}
	return fmt.Sprintf("0x%08X", off)
}
