// Package control implements the tracer's control plane: the process-wide
// enabled flag and the per-goroutine reentrancy marker.
//
// The enabled flag gates record creation only. Deallocations always clear
// their store entry regardless of the flag, so disabling tracking can never
// strand a record for memory that is no longer live.
//
// The reentrancy marker exists because the unwinder may itself allocate
// (lazy symbol resolution, internal buffer growth). While a goroutine is
// marked, any nested allocator call on that goroutine bypasses tracking
// entirely and passes straight through to the raw allocator. Suppression is
// by marker, not by lock, so a recursive call can never deadlock on the
// store mutex.
package control

import (
	"sync"
	"sync/atomic"
)

// Plane holds the tracking switch and the set of goroutines currently
// inside a stack capture.
//
// The enabled flag is a plain atomic; the marker set is a sync.Map keyed by
// goroutine id, written only on the rare capture path and never while the
// store lock is held.
type Plane struct {
	enabled   atomic.Bool
	capturing sync.Map // int64 (goroutine id) → struct{}
}

// New creates a control plane with tracking enabled, the initial state for
// the lifetime of the process.
func New() *Plane {
	p := &Plane{}
	p.enabled.Store(true)
	return p
}

// Enable turns tracking on for subsequent allocations. It has no
// retroactive effect on records already in the store.
func (p *Plane) Enable() {
	p.enabled.Store(true)
}

// Disable turns tracking off for subsequent allocations. Records created
// earlier stay tracked until their matching deallocation.
func (p *Plane) Disable() {
	p.enabled.Store(false)
}

// Enabled reports whether new allocations are currently tracked.
//
// This is the first check on the allocation hot path: a single atomic load.
//
//go:nosplit
func (p *Plane) Enabled() bool {
	return p.enabled.Load()
}

// TryMark sets the reentrancy marker for gid. It returns false when the
// marker is already set, meaning the caller is a nested allocator call made
// from inside this goroutine's own capture and must bypass tracking.
func (p *Plane) TryMark(gid int64) bool {
	_, loaded := p.capturing.LoadOrStore(gid, struct{}{})
	return !loaded
}

// Unmark clears the reentrancy marker for gid. The hook calls this on every
// exit path from capture, including failure, so a marker can never leak.
func (p *Plane) Unmark(gid int64) {
	p.capturing.Delete(gid)
}

// Marked reports whether gid is currently inside a capture.
func (p *Plane) Marked(gid int64) bool {
	_, ok := p.capturing.Load(gid)
	return ok
}
