// Package record defines the allocation record retained for each live block.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/kolkov/leaktracer/internal/leaktrace/frames"
)

// Allocation describes one live, tracked allocation: where the memory is,
// how big it is, and the call stack that requested it.
//
// An Allocation is built exactly once, when the raw allocator grants the
// request while tracking is enabled, and is immutable afterwards. The store
// entry that indexes it owns it until the matching deallocation removes it.
type Allocation struct {
	// Addr is the address returned by the raw allocator. It is unique among
	// simultaneously live records but may recur over the program's lifetime
	// as the allocator reuses freed addresses.
	Addr uintptr

	// Size is the requested size in bytes, as seen by the caller. The raw
	// allocator may have rounded the actual reservation up (e.g. to a page).
	Size uintptr

	// Frames is the captured call stack of the allocation site.
	Frames frames.Buffer

	// GID is the id of the goroutine that made the allocation.
	GID int64

	// Time is when the allocation was granted.
	Time time.Time
}

// String renders the record with its symbolized stack:
//
//	allocation 0x7f3a2c000000 (size 4096, goroutine 7):
//	  main.loadIndex()
//	      /path/to/index.go:88
//	  main.main()
//	      /path/to/main.go:23
func (a Allocation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "allocation 0x%x (size %d, goroutine %d):\n", a.Addr, a.Size, a.GID)
	b.WriteString(a.Frames.String())
	return b.String()
}
