// Package frames implements call-stack capture for allocation records.
//
// A Buffer is a bounded, ordered sequence of program counters describing
// the call stack that produced one allocation, innermost frame first.
// Buffers are captured once, at allocation time, and never modified
// afterwards: a record's stack is an immutable fact about where the
// memory came from.
//
// Design:
//   - Fixed capture ceiling (MaxFrames = 64); per-tracer depth is a
//     construction-time setting, default 10 frames
//   - Capture via runtime.Callers into a stack-local array, then a single
//     exact-length copy onto the Go heap
//   - Partial capture is success: a shallow stack simply yields a shorter
//     Buffer, never an error
//   - Symbolization (runtime.CallersFrames) is display-only and never runs
//     on the allocation hot path
//
// The Buffer's backing storage comes from the ordinary Go heap, which is a
// different allocator than the one being traced. Capturing a stack therefore
// never re-enters the traced allocator from this package; re-entry can only
// come from the unwinder's own behavior, which the hook guards against with
// its per-goroutine marker.
package frames

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxFrames is the hard ceiling on captured stack depth, regardless of
	// the configured per-tracer limit. 64 frames is deep enough that the
	// allocation site is never truncated away in practice.
	MaxFrames = 64

	// DefaultMax is the capture depth used when no explicit limit is
	// configured. Ten frames almost always include the allocation site
	// and enough context to identify the leaking code path.
	DefaultMax = 10
)

// Buffer is a captured call stack: up to the configured number of program
// counters, innermost call first. The zero value is a valid empty stack.
//
// A Buffer is immutable after capture. It may be shorter than the requested
// limit when the real stack is shallower or the unwinder stopped early.
type Buffer struct {
	pc []uintptr
}

// Capture walks the current call stack and returns up to max frames.
//
// skip is the number of callers above Capture itself to omit, so that the
// instrumentation's own frames never appear in a record; skip 0 means the
// first captured frame is Capture's direct caller.
//
// Capture never fails: if the unwinder yields fewer frames than requested
// (shallow stack, restricted unwind support), the frames obtained so far
// are returned. max values below 1 yield an empty Buffer; values above
// MaxFrames are clamped.
//
// Performance: ~1µs for a 10-frame stack, dominated by runtime.Callers.
// No symbolization happens here.
//
// Thread Safety: safe for concurrent calls; touches no shared state.
func Capture(skip, max int) Buffer {
	if max < 1 {
		return Buffer{}
	}
	if max > MaxFrames {
		max = MaxFrames
	}

	// Stack-local scratch; only the frames actually obtained are copied out.
	// runtime.Callers skip: 0 = Callers itself, 1 = Capture, 2 = caller.
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(2+skip, pcs[:max])
	if n == 0 {
		return Buffer{}
	}

	out := make([]uintptr, n)
	copy(out, pcs[:n])
	return Buffer{pc: out}
}

// Len returns the number of captured frames.
func (b Buffer) Len() int {
	return len(b.pc)
}

// PCs returns a copy of the raw program counters, innermost first.
// The copy keeps the Buffer immutable even if the caller mutates the result.
func (b Buffer) PCs() []uintptr {
	out := make([]uintptr, len(b.pc))
	copy(out, b.pc)
	return out
}

// Hash returns a 64-bit digest of the program counters.
//
// Two Buffers captured at the same call site on the same build hash
// identically, which is what leak-report aggregation keys on. The hash is
// not stable across builds (PCs move).
//
// Performance: ~50ns for a 10-frame stack (xxhash over 8 bytes per frame).
func (b Buffer) Hash() uint64 {
	d := xxhash.New()
	var scratch [8]byte
	for _, pc := range b.pc {
		binary.LittleEndian.PutUint64(scratch[:], uint64(pc))
		_, _ = d.Write(scratch[:]) // Write never fails for a Digest.
	}
	return d.Sum64()
}

// Frame is one symbolized stack entry. Fields other than PC may be zero
// when the runtime has no symbol information for the counter.
type Frame struct {
	PC       uintptr
	Function string
	File     string
	Line     int
}

// Frames resolves the captured counters to symbolized frames.
//
// Resolution is best-effort: counters the runtime cannot symbolize still
// appear in the result with an empty Function. The result can be longer
// than Len when the runtime expands inlined calls into their own frames;
// order stays innermost first either way.
//
// Performance: ~10µs; intended for report rendering, never the hot path.
func (b Buffer) Frames() []Frame {
	if len(b.pc) == 0 {
		return nil
	}

	out := make([]Frame, 0, len(b.pc))
	iter := runtime.CallersFrames(b.pc)
	for {
		fr, more := iter.Next()
		if fr.PC != 0 {
			out = append(out, Frame{
				PC:       fr.PC,
				Function: fr.Function,
				File:     fr.File,
				Line:     fr.Line,
			})
		}
		if !more {
			break
		}
	}
	return out
}

// String formats the stack one frame per line:
//
//	  main.buildCache()
//	      /path/to/cache.go:41
//	  main.main()
//	      /path/to/main.go:17
//
// Unresolvable frames render as their raw counter.
func (b Buffer) String() string {
	if len(b.pc) == 0 {
		return "  <no stack>\n"
	}

	var buf strings.Builder
	for _, f := range b.Frames() {
		if f.Function == "" {
			fmt.Fprintf(&buf, "  0x%x <unknown>\n", f.PC)
			continue
		}
		fmt.Fprintf(&buf, "  %s()\n", f.Function)
		fmt.Fprintf(&buf, "      %s:%d\n", f.File, f.Line)
	}
	return buf.String()
}
