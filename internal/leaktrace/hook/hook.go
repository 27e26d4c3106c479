// Package hook implements the allocator hook: the wrapper registered in
// front of a raw allocator that keeps a live-allocation record for every
// outstanding block.
//
// The hook is purely observational. Every operation delegates to the raw
// allocator first and returns exactly what it returned (success, failure,
// address, alignment), so instrumented and uninstrumented programs see
// identical allocator behavior. Tracking happens after the fact and resolves
// every one of its own failure modes locally; no tracker condition is ever
// surfaced to the application.
//
// Hot-path order on a tracked allocation:
//
//	raw allocate → enabled check → reentrancy mark → stack capture
//	→ unmark → store insert
//
// Capture always completes before the store lock is taken. Combined with the
// per-goroutine marker, that is the documented mitigation for unwinders that
// take their own global locks during symbol resolution: the tracer never
// holds its lock while unwinding, and recursive allocator entry from inside
// the unwinder is suppressed by the marker rather than blocked on a lock.
package hook

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/go-hclog"

	"github.com/kolkov/leaktracer/internal/leaktrace/control"
	"github.com/kolkov/leaktracer/internal/leaktrace/frames"
	"github.com/kolkov/leaktracer/internal/leaktrace/record"
	"github.com/kolkov/leaktracer/internal/leaktrace/store"
)

// Allocator is the raw allocation primitive the tracer wraps. Implementations
// satisfy requests from somewhere other than the tracer itself (mmap, an
// arena, a cgo pool); the tracer adds bookkeeping on top without changing
// the outcome of any call.
type Allocator interface {
	// Allocate returns the address of a new block of at least size bytes
	// aligned to align, or an error when the request cannot be satisfied.
	Allocate(size, align uintptr) (uintptr, error)

	// Deallocate releases a block previously returned by Allocate. size and
	// align must match the original request.
	Deallocate(addr, size, align uintptr)
}

// Reallocator is optionally implemented by raw allocators that can resize
// in place. When absent, the tracer emulates resize with allocate-copy-free.
type Reallocator interface {
	Reallocate(addr, oldSize, newSize, align uintptr) (uintptr, error)
}

// captureSkip is the number of tracer-internal frames between the capture
// call and the application's allocation site (capturePCs, track, and the
// exported entry point), so the hook's own frames never appear in a record.
const captureSkip = 3

// Config configures a Tracer. The zero value of every field has a usable
// default except Raw, which is required.
type Config struct {
	// Raw is the underlying allocator. Required.
	Raw Allocator

	// MaxFrames is the stack depth captured per allocation. Values below 1
	// select frames.DefaultMax; values above frames.MaxFrames are clamped.
	MaxFrames int

	// Logger receives debug-level tracking events. Defaults to a null logger.
	Logger hclog.Logger

	// capture overrides the stack capture function. Test seam; nil selects
	// frames.Capture.
	capture func(skip, max int) frames.Buffer
}

// Tracer is the allocator hook plus its control plane and record store.
// One Tracer instance tracks one raw allocator; all methods are safe for
// concurrent use from any number of goroutines.
type Tracer struct {
	raw       Allocator
	ctl       *control.Plane
	recs      *store.Store
	maxFrames int
	capture   func(skip, max int) frames.Buffer
	log       hclog.Logger

	tracked          atomic.Uint64
	skippedDisabled  atomic.Uint64
	skippedReentrant atomic.Uint64
	untrackedFrees   atomic.Uint64
	reallocs         atomic.Uint64
}

// New creates a Tracer wrapping cfg.Raw with tracking enabled.
//
// The Tracer must be constructed before the first allocation it is meant to
// observe; allocations made directly on the raw allocator beforehand are
// invisible to it, and freeing them through the Tracer is still safe (the
// removal of a never-tracked address is a counted no-op).
func New(cfg Config) *Tracer {
	if cfg.Raw == nil {
		panic("leaktracer: Config.Raw allocator is required")
	}

	max := cfg.MaxFrames
	if max < 1 {
		max = frames.DefaultMax
	}
	if max > frames.MaxFrames {
		max = frames.MaxFrames
	}

	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	capture := cfg.capture
	if capture == nil {
		capture = frames.Capture
	}

	return &Tracer{
		raw:       cfg.Raw,
		ctl:       control.New(),
		recs:      store.New(),
		maxFrames: max,
		capture:   capture,
		log:       log,
	}
}

// Allocate satisfies the request through the raw allocator, then records it
// if tracking is enabled and the goroutine is not already inside a capture.
//
// A raw allocator failure propagates unchanged and leaves the store
// untouched. A tracked success inserts a record keyed by the returned
// address; the insert overwrites any stale entry left for a reused address.
func (t *Tracer) Allocate(size, align uintptr) (uintptr, error) {
	addr, err := t.raw.Allocate(size, align)
	if err != nil {
		return addr, err
	}
	t.track(addr, size)
	return addr, nil
}

// Deallocate removes any record for addr, then releases the block.
//
// Removal is unconditional with respect to the enabled flag: tracking gates
// record creation, never removal, so the store cannot accumulate records for
// addresses that are no longer live. The only bypass is the reentrancy
// marker: a nested free made from inside this goroutine's own capture
// passes straight through to the raw allocator.
func (t *Tracer) Deallocate(addr, size, align uintptr) {
	t.untrack(addr)
	t.raw.Deallocate(addr, size, align)
}

// Reallocate resizes a block. In-place resize is used when the raw allocator
// supports it; otherwise the block is moved with allocate-copy-free.
//
// Bookkeeping is modeled as deallocate-then-allocate even when the address
// does not change: the record is rebuilt with a fresh capture so the new
// size and the resize site are what a later snapshot shows.
func (t *Tracer) Reallocate(addr, oldSize, newSize, align uintptr) (uintptr, error) {
	newAddr, err := t.rawReallocate(addr, oldSize, newSize, align)
	if err != nil {
		return newAddr, err
	}
	t.reallocs.Add(1)
	t.untrack(addr)
	t.track(newAddr, newSize)
	return newAddr, nil
}

// Enable turns tracking on for subsequent allocations.
func (t *Tracer) Enable() {
	t.ctl.Enable()
	t.log.Debug("tracking enabled")
}

// Disable turns tracking off for subsequent allocations. Existing records
// are unaffected and are still removed by their matching deallocations.
func (t *Tracer) Disable() {
	t.ctl.Disable()
	t.log.Debug("tracking disabled")
}

// Enabled reports whether new allocations are currently tracked.
func (t *Tracer) Enabled() bool {
	return t.ctl.Enabled()
}

// Leaks returns a point-in-time copy of every live tracked allocation:
// memory allocated while tracking was enabled and not yet freed. Each entry
// is a leak candidate. The copy is independent; the caller may inspect it
// at leisure while the process keeps allocating.
func (t *Tracer) Leaks() map[uintptr]record.Allocation {
	return t.recs.Snapshot()
}

// Stats is a snapshot of the tracer's counters.
type Stats struct {
	// Enabled is the current state of the tracking flag.
	Enabled bool

	// Live is the number of tracked allocations currently outstanding.
	Live int

	// LiveBytes is the sum of the requested sizes of live allocations.
	LiveBytes uint64

	// Tracked counts allocations that were recorded since construction.
	Tracked uint64

	// SkippedDisabled counts allocations that bypassed tracking because the
	// flag was off.
	SkippedDisabled uint64

	// SkippedReentrant counts allocations that bypassed tracking because
	// they were made from inside the same goroutine's stack capture.
	SkippedReentrant uint64

	// UntrackedFrees counts deallocations of addresses with no record.
	UntrackedFrees uint64

	// Reallocs counts resize operations.
	Reallocs uint64
}

// Stats returns current counter values. Counters are read individually, so
// the result reflects some valid intermediate state under concurrency.
func (t *Tracer) Stats() Stats {
	return Stats{
		Enabled:          t.ctl.Enabled(),
		Live:             t.recs.Len(),
		LiveBytes:        uint64(t.recs.Bytes()),
		Tracked:          t.tracked.Load(),
		SkippedDisabled:  t.skippedDisabled.Load(),
		SkippedReentrant: t.skippedReentrant.Load(),
		UntrackedFrees:   t.untrackedFrees.Load(),
		Reallocs:         t.reallocs.Load(),
	}
}

// track records a granted allocation. Every failure mode here is resolved
// locally: a disabled flag or a reentrant call just means this allocation
// goes untracked, never that it fails.
func (t *Tracer) track(addr, size uintptr) {
	if !t.ctl.Enabled() {
		t.skippedDisabled.Add(1)
		return
	}

	gid := control.GoroutineID()
	if !t.ctl.TryMark(gid) {
		// Nested allocation from inside this goroutine's own capture
		// (the unwinder allocated). Pass through untracked.
		t.skippedReentrant.Add(1)
		return
	}

	// Capture runs fully before the store lock is taken.
	buf := t.capturePCs(gid)

	rec := record.Allocation{
		Addr:   addr,
		Size:   size,
		Frames: buf,
		GID:    gid,
		Time:   time.Now(),
	}
	if t.recs.Insert(addr, rec) {
		t.log.Debug("overwrote stale record for reused address", "addr", addr)
	}
	t.tracked.Add(1)
}

// capturePCs captures the caller's stack with the reentrancy marker held.
// The marker is cleared on every exit path, including a panicking capture.
func (t *Tracer) capturePCs(gid int64) frames.Buffer {
	defer t.ctl.Unmark(gid)
	return t.capture(captureSkip, t.maxFrames)
}

// untrack removes the record for addr, if any. Skipped entirely while this
// goroutine is inside a capture.
func (t *Tracer) untrack(addr uintptr) {
	if t.ctl.Marked(control.GoroutineID()) {
		return
	}
	if _, ok := t.recs.Remove(addr); !ok {
		t.untrackedFrees.Add(1)
	}
}

// rawReallocate performs the memory side of a resize.
func (t *Tracer) rawReallocate(addr, oldSize, newSize, align uintptr) (uintptr, error) {
	if r, ok := t.raw.(Reallocator); ok {
		return r.Reallocate(addr, oldSize, newSize, align)
	}

	newAddr, err := t.raw.Allocate(newSize, align)
	if err != nil {
		return newAddr, err
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	memmove(newAddr, addr, n)
	t.raw.Deallocate(addr, oldSize, align)
	return newAddr, nil
}

// memmove copies n bytes between raw addresses obtained from the allocator.
//
//nolint:gosec // uintptr→Pointer is required to address raw allocator memory
func memmove(dst, src, n uintptr) {
	if n == 0 {
		return
	}
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), n)
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), n)
	copy(d, s)
}
