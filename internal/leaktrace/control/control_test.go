package control

import (
	"sync"
	"testing"
)

// TestInitialStateEnabled verifies tracking starts enabled.
func TestInitialStateEnabled(t *testing.T) {
	p := New()
	if !p.Enabled() {
		t.Error("new control plane is disabled, want enabled")
	}
}

// TestEnableDisableToggle verifies the two-state flag transitions.
func TestEnableDisableToggle(t *testing.T) {
	p := New()

	p.Disable()
	if p.Enabled() {
		t.Error("Enabled() = true after Disable()")
	}

	p.Enable()
	if !p.Enabled() {
		t.Error("Enabled() = false after Enable()")
	}

	// Transitions are idempotent.
	p.Enable()
	if !p.Enabled() {
		t.Error("repeated Enable() flipped the flag")
	}
}

// TestMarkerLifecycle verifies TryMark/Unmark/Marked for one goroutine.
func TestMarkerLifecycle(t *testing.T) {
	p := New()
	gid := GoroutineID()

	if p.Marked(gid) {
		t.Fatal("fresh plane reports goroutine marked")
	}
	if !p.TryMark(gid) {
		t.Fatal("first TryMark failed")
	}
	if !p.Marked(gid) {
		t.Error("Marked() = false while marker held")
	}
	if p.TryMark(gid) {
		t.Error("nested TryMark succeeded, want reentrancy detection")
	}

	p.Unmark(gid)
	if p.Marked(gid) {
		t.Error("Marked() = true after Unmark")
	}
	if !p.TryMark(gid) {
		t.Error("TryMark failed after Unmark")
	}
}

// TestMarkerIsPerGoroutine verifies one goroutine's marker does not
// suppress tracking on another.
func TestMarkerIsPerGoroutine(t *testing.T) {
	p := New()

	if !p.TryMark(GoroutineID()) {
		t.Fatal("TryMark failed on main test goroutine")
	}

	done := make(chan bool)
	go func() {
		done <- p.TryMark(GoroutineID())
	}()
	if !<-done {
		t.Error("marker on one goroutine blocked TryMark on another")
	}
}

// TestGoroutineIDStableAndDistinct verifies ids are nonzero, stable within
// a goroutine, and distinct across goroutines.
func TestGoroutineIDStableAndDistinct(t *testing.T) {
	self := GoroutineID()
	if self == 0 {
		t.Fatal("GoroutineID() = 0")
	}
	if again := GoroutineID(); again != self {
		t.Errorf("GoroutineID() unstable: %d then %d", self, again)
	}

	const n = 10
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- GoroutineID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{self: true}
	for id := range ids {
		if id == 0 {
			t.Error("goroutine reported id 0")
		}
		if seen[id] {
			t.Errorf("duplicate goroutine id %d", id)
		}
		seen[id] = true
	}
}

// TestParseGID exercises the stack-header parser directly.
func TestParseGID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"typical", "goroutine 123 [running]:\nmain.main()", 123},
		{"single digit", "goroutine 7 [running]:", 7},
		{"large id", "goroutine 18446744073 [running]:", 18446744073},
		{"wrong prefix", "gorotine 5 [running]:", 0},
		{"empty", "", 0},
		{"truncated", "goroutin", 0},
		{"no digits", "goroutine  [running]:", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseGID([]byte(tt.in)); got != tt.want {
				t.Errorf("parseGID(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
