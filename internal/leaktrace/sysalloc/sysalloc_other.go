//go:build !unix

package sysalloc

// System returns the platform default raw allocator. Without mmap support
// the Go-heap-backed allocator stands in.
func System() *Heap {
	return NewHeap()
}
