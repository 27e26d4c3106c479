package hook

import (
	"testing"

	"golang.org/x/sync/errgroup"
)

// TestConcurrentAllocations verifies that N allocations from distinct
// goroutines, with no frees, yield exactly N leak candidates: no record is
// lost to a concurrent unrelated allocation.
func TestConcurrentAllocations(t *testing.T) {
	const (
		goroutines = 8
		perG       = 200
	)

	tr := New(Config{Raw: newFakeAlloc(), MaxFrames: 4})

	var eg errgroup.Group
	for g := 0; g < goroutines; g++ {
		eg.Go(func() error {
			for i := 0; i < perG; i++ {
				if _, err := tr.Allocate(16, 8); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("concurrent Allocate() error: %v", err)
	}

	if n := len(tr.Leaks()); n != goroutines*perG {
		t.Errorf("Leaks() has %d entries, want %d", n, goroutines*perG)
	}
	if s := tr.Stats(); s.Tracked != goroutines*perG {
		t.Errorf("Stats().Tracked = %d, want %d", s.Tracked, goroutines*perG)
	}
}

// TestConcurrentChurn mixes allocating and freeing goroutines and checks
// the store drains to exactly the still-live set.
func TestConcurrentChurn(t *testing.T) {
	const (
		goroutines = 8
		perG       = 100
	)

	tr := New(Config{Raw: newFakeAlloc(), MaxFrames: 4})

	addrs := make([][]uintptr, goroutines)
	var alloc errgroup.Group
	for g := 0; g < goroutines; g++ {
		g := g
		alloc.Go(func() error {
			addrs[g] = make([]uintptr, 0, perG)
			for i := 0; i < perG; i++ {
				a, err := tr.Allocate(32, 8)
				if err != nil {
					return err
				}
				addrs[g] = append(addrs[g], a)
			}
			return nil
		})
	}
	if err := alloc.Wait(); err != nil {
		t.Fatalf("concurrent Allocate() error: %v", err)
	}

	// Each goroutine frees every other slot of a different goroutine's
	// allocations, while snapshots are taken concurrently.
	var churn errgroup.Group
	for g := 0; g < goroutines; g++ {
		g := g
		churn.Go(func() error {
			mine := addrs[(g+1)%goroutines]
			for i := 0; i < len(mine); i += 2 {
				tr.Deallocate(mine[i], 32, 8)
			}
			return nil
		})
	}
	churn.Go(func() error {
		for i := 0; i < 50; i++ {
			_ = tr.Leaks() // must not block or corrupt concurrent mutation
		}
		return nil
	})
	if err := churn.Wait(); err != nil {
		t.Fatalf("concurrent churn error: %v", err)
	}

	want := goroutines * perG / 2
	leaks := tr.Leaks()
	if len(leaks) != want {
		t.Fatalf("Leaks() has %d entries, want %d", len(leaks), want)
	}
	for g := 0; g < goroutines; g++ {
		for i, a := range addrs[g] {
			_, live := leaks[a]
			if i%2 == 0 && live {
				t.Fatalf("freed address 0x%x still tracked", a)
			}
			if i%2 == 1 && !live {
				t.Fatalf("live address 0x%x lost", a)
			}
		}
	}
}
