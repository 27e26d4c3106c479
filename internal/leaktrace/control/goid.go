// Copyright 2025 The leaktracer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Goroutine ID extraction for the reentrancy marker.
//
// Go offers the marker no thread-local storage, so the per-"thread" marker
// of the design is keyed by goroutine id instead. The id is obtained by
// parsing the first line of runtime.Stack output, the universal method that
// works on every architecture and Go version.
//
// Performance: ~1500ns per call, dominated by runtime.Stack. The id is
// needed only on the tracked-allocation path (after the enabled check), not
// on the pass-through path, so deallocation and disabled allocation stay
// cheap.

package control

import "runtime"

// GoroutineID returns the current goroutine's id, or 0 if the stack header
// cannot be parsed (which does not happen on any released Go runtime).
func GoroutineID() int64 {
	// Only the first line is needed: "goroutine 123 [running]:\n...".
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the numeric id from stack trace bytes of the form
// "goroutine 123 [running]:...". Direct byte parsing, no allocations.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var gid int64
	for i := len(prefix); i < len(buf); i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			// Non-digit terminates the id (space before "[running]").
			break
		}
		gid = gid*10 + int64(c-'0')
	}
	return gid
}
