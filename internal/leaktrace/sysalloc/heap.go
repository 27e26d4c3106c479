package sysalloc

import (
	"fmt"
	"sync"
	"unsafe"
)

// Heap is an Allocator backed by the Go runtime heap. Each block is a byte
// slice pinned in a registry until deallocated, so the address handed out
// stays valid and stable for the block's lifetime.
//
// Heap exists for tests, examples, and platforms without mmap; production
// use of the tracer normally wraps System or an application arena.
type Heap struct {
	mu   sync.Mutex
	live map[uintptr][]byte
}

// NewHeap creates an empty heap allocator.
func NewHeap() *Heap {
	return &Heap{live: make(map[uintptr][]byte)}
}

// Allocate reserves size bytes aligned to align (align 0 means any).
func (h *Heap) Allocate(size, align uintptr) (uintptr, error) {
	if size == 0 {
		return 0, ErrZeroSize
	}
	if align > 1 && align&(align-1) != 0 {
		return 0, fmt.Errorf("%w: %d is not a power of two", ErrUnsupportedAlignment, align)
	}
	if align == 0 {
		align = 1
	}

	// Over-allocate so an aligned address always exists inside the block.
	buf := make([]byte, size+align-1)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	if rem := addr % align; rem != 0 {
		addr += align - rem
	}

	h.mu.Lock()
	h.live[addr] = buf
	h.mu.Unlock()
	return addr, nil
}

// Deallocate releases the block at addr. Unknown addresses are ignored, as
// a raw free of foreign memory would be undefined anyway; the tracer never
// forwards a free it did not receive.
func (h *Heap) Deallocate(addr, size, align uintptr) {
	h.mu.Lock()
	delete(h.live, addr)
	h.mu.Unlock()
}

// Live returns the number of outstanding blocks. Test helper.
func (h *Heap) Live() int {
	h.mu.Lock()
	n := len(h.live)
	h.mu.Unlock()
	return n
}
