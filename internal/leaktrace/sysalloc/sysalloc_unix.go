//go:build unix

package sysalloc

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mmap is an Allocator that obtains memory directly from the operating
// system with anonymous private mappings. Requests are rounded up to whole
// pages, so any alignment up to the page size is satisfied for free.
//
// Getting memory from the OS rather than the Go heap makes Mmap the closest
// analogue to a process allocator: the blocks are invisible to the garbage
// collector and their lifetime is exactly Allocate to Deallocate.
type Mmap struct {
	mu   sync.Mutex
	live map[uintptr][]byte // addr → mapped region, kept for Munmap
}

// NewMmap creates an empty mmap allocator.
func NewMmap() *Mmap {
	return &Mmap{live: make(map[uintptr][]byte)}
}

// System returns the platform default raw allocator.
func System() *Mmap {
	return NewMmap()
}

// Allocate maps at least size bytes and returns the page-aligned address.
func (m *Mmap) Allocate(size, align uintptr) (uintptr, error) {
	if size == 0 {
		return 0, ErrZeroSize
	}
	page := uintptr(unix.Getpagesize())
	if align > page {
		return 0, fmt.Errorf("%w: %d exceeds page size %d", ErrUnsupportedAlignment, align, page)
	}

	length := int((size + page - 1) &^ (page - 1))
	buf, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("sysalloc: mmap %d bytes: %w", length, err)
	}

	addr := uintptr(unsafe.Pointer(&buf[0]))
	m.mu.Lock()
	m.live[addr] = buf
	m.mu.Unlock()
	return addr, nil
}

// Deallocate unmaps the region that starts at addr. Addresses this
// allocator did not hand out are ignored.
func (m *Mmap) Deallocate(addr, size, align uintptr) {
	m.mu.Lock()
	buf, ok := m.live[addr]
	if ok {
		delete(m.live, addr)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	// Unmap failure leaves the pages mapped; nothing useful to do beyond
	// having already dropped the registry entry.
	_ = unix.Munmap(buf)
}

// Live returns the number of outstanding mappings.
func (m *Mmap) Live() int {
	m.mu.Lock()
	n := len(m.live)
	m.mu.Unlock()
	return n
}
