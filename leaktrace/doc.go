// Package leaktrace provides an allocation-site leak tracer for manually
// managed memory.
//
// The tracer sits between application code and a raw allocator. It records
// the call stack and size of every allocation made while tracking is
// enabled and drops the record when the matching deallocation arrives, so
// at any moment the retained records are exactly the leak candidates:
// memory that was allocated but never freed. It keeps no history and is
// not a profiler; a block that is freed leaves no trace.
//
// # Quick Start
//
//	package main
//
//	import (
//		"os"
//
//		"github.com/kolkov/leaktracer/leaktrace"
//	)
//
//	func main() {
//		tracer := leaktrace.New()
//
//		addr, err := tracer.Allocate(4096, 8)
//		if err != nil {
//			panic(err)
//		}
//		_ = addr // ... use the memory, forget to free it ...
//
//		leaktrace.WriteReport(os.Stdout, tracer.Leaks())
//	}
//
// A process-wide default tracer backed by the system allocator is also
// available through [Default], [Enable], [Disable], and [Leaks].
//
// # API Overview
//
// The package provides:
//   - Construction: [New] with [WithMaxFrames], [WithAllocator], [WithLogger]
//   - Control plane: Enable, Disable, Enabled on the tracer or package level
//   - Diagnostics: Tracer.Leaks, Tracer.Stats, [Summary], [WriteReport]
//   - Monitoring: [NewCollector] for prometheus registration
//   - Version information: [Version], [GetInfo]
//
// # How It Works
//
// Every Allocate call first delegates to the raw allocator; tracking is
// purely observational and never changes the outcome the caller sees. On a
// tracked success the tracer captures up to the configured number of stack
// frames (default 10) and files a record under the returned address. Every
// Deallocate removes the record for its address unconditionally, so
// disabling tracking can never strand a record for dead memory.
//
// The unwinder may itself allocate while resolving frames. A per-goroutine
// reentrancy marker makes any nested allocator call from inside a capture
// bypass tracking and pass straight through to the raw allocator, which is
// what keeps the tracer free of recursion and lock re-entry. The record
// store's lock is never held during capture.
//
// # Overhead
//
//	Tracked allocation:   ~3µs (goroutine id + stack capture dominate)
//	Deallocation:         ~2µs (goroutine id + one map delete)
//	Disabled allocation:  one atomic load over the raw call
//	Snapshot:             O(live records), lock held only for the copy
//
// # Caveats
//
// The tracer observes only the allocator it wraps; Go's own garbage
// collected heap is out of scope. On platforms where symbol resolution
// takes a global lock, unwinding inside an allocation hook can in principle
// interact badly with other lock holders; the tracer's mitigation is that
// capture never runs under its own lock and recursive entry is suppressed
// by marker, not by lock.
package leaktrace
