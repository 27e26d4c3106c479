// Package sysalloc provides raw allocators for the tracer to wrap.
//
// System returns the platform default: page-granular mappings obtained
// directly from the operating system on unix, and a Go-heap-backed
// allocator elsewhere. Heap is always available and is what tests and
// examples use when they need deterministic, portable allocations.
//
// Both allocators keep their own registry of live blocks so Deallocate can
// be driven by address alone; the registry also pins heap-backed blocks
// against the garbage collector.
package sysalloc

import "errors"

// ErrUnsupportedAlignment is returned when an allocator cannot satisfy the
// requested alignment. It propagates through the tracer unchanged, like any
// other raw allocation failure.
var ErrUnsupportedAlignment = errors.New("sysalloc: unsupported alignment")

// ErrZeroSize is returned for zero-byte requests; the allocators here have
// no analogue of malloc(0)'s unique pointer.
var ErrZeroSize = errors.New("sysalloc: zero-size allocation")
