package hook

import (
	"testing"

	"pgregory.net/rapid"
)

// TestLeaksMatchOutstandingSet checks the defining property over random
// operation sequences: with tracking enabled throughout, Leaks() is exactly
// the set of allocated-but-not-freed addresses, each with its requested
// size.
func TestLeaksMatchOutstandingSet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := New(Config{Raw: newFakeAlloc(), MaxFrames: 2})

		outstanding := make(map[uintptr]uintptr) // addr → size
		var order []uintptr

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			freeable := len(order) > 0
			doFree := freeable && rapid.Bool().Draw(t, "free")

			if doFree {
				idx := rapid.IntRange(0, len(order)-1).Draw(t, "victim")
				addr := order[idx]
				tr.Deallocate(addr, outstanding[addr], 8)
				delete(outstanding, addr)
				order = append(order[:idx], order[idx+1:]...)
				continue
			}

			size := uintptr(rapid.IntRange(1, 1<<16).Draw(t, "size"))
			addr, err := tr.Allocate(size, 8)
			if err != nil {
				t.Fatalf("Allocate() error: %v", err)
			}
			outstanding[addr] = size
			order = append(order, addr)
		}

		leaks := tr.Leaks()
		if len(leaks) != len(outstanding) {
			t.Fatalf("Leaks() has %d entries, model has %d", len(leaks), len(outstanding))
		}
		for addr, size := range outstanding {
			rec, ok := leaks[addr]
			if !ok {
				t.Fatalf("outstanding address 0x%x missing from Leaks()", addr)
			}
			if rec.Size != size {
				t.Fatalf("record size = %d, want %d", rec.Size, size)
			}
		}
	})
}
