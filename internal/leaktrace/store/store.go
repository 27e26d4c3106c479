// Package store implements the record store: the concurrent map from live
// memory address to its allocation record.
//
// The store is the single piece of mutable shared state in the tracer. It is
// guarded by one mutex, held only for the duration of a map mutation or copy
// and never across stack capture; capture happens fully before the lock is
// taken. That discipline is what keeps the tracer deadlock-free even when
// the unwinder takes its own global locks.
//
// The map and its records live on the ordinary Go runtime heap, which is a
// separate allocator from the one the hook instruments. Inserting a record
// therefore never triggers another tracked allocation, so the store needs no
// arena or raw allocation path of its own to stay non-recursive.
//
// Invariant: at any instant, every address present maps to a block that is
// currently allocated and was allocated while tracking was enabled. Removal
// is unconditional on deallocation, so the store never accumulates entries
// for dead addresses; if the raw allocator reuses an address while a stale
// entry somehow survives, Insert overwrites it (last writer wins).
package store

import (
	"sync"

	"github.com/kolkov/leaktracer/internal/leaktrace/record"
)

// Store maps live addresses to their allocation records.
//
// All methods are safe for concurrent use from any number of goroutines.
// The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	recs  map[uintptr]record.Allocation
	bytes uintptr // sum of Size over recs, maintained under mu
}

// New creates an empty store.
func New() *Store {
	return &Store{
		recs: make(map[uintptr]record.Allocation),
	}
}

// Insert adds the record for addr, overwriting any stale entry for a reused
// address. Returns true if an entry was overwritten.
//
// Performance: one map assignment under the lock; capture must already have
// happened by the time Insert is called.
func (s *Store) Insert(addr uintptr, rec record.Allocation) bool {
	s.mu.Lock()
	old, replaced := s.recs[addr]
	if replaced {
		s.bytes -= old.Size
	}
	s.recs[addr] = rec
	s.bytes += rec.Size
	s.mu.Unlock()
	return replaced
}

// Remove deletes and returns the record for addr. The second result is
// false when the address was never tracked (allocated while disabled, or
// predating the tracer); that case is a no-op, not an error.
func (s *Store) Remove(addr uintptr) (record.Allocation, bool) {
	s.mu.Lock()
	rec, ok := s.recs[addr]
	if ok {
		delete(s.recs, addr)
		s.bytes -= rec.Size
	}
	s.mu.Unlock()
	return rec, ok
}

// Snapshot returns an independent copy of the current contents.
//
// The lock is held only while copying, so callers can inspect the result
// for as long as they like while the process keeps allocating and freeing.
// The snapshot reflects some valid intermediate state of the operation
// stream, nothing stronger.
func (s *Store) Snapshot() map[uintptr]record.Allocation {
	s.mu.Lock()
	out := make(map[uintptr]record.Allocation, len(s.recs))
	for addr, rec := range s.recs {
		out[addr] = rec
	}
	s.mu.Unlock()
	return out
}

// Len returns the number of live tracked allocations.
func (s *Store) Len() int {
	s.mu.Lock()
	n := len(s.recs)
	s.mu.Unlock()
	return n
}

// Bytes returns the total tracked live bytes (sum of requested sizes).
func (s *Store) Bytes() uintptr {
	s.mu.Lock()
	b := s.bytes
	s.mu.Unlock()
	return b
}

// Reset drops every entry. Test helper; production code removes entries
// one deallocation at a time.
func (s *Store) Reset() {
	s.mu.Lock()
	s.recs = make(map[uintptr]record.Allocation)
	s.bytes = 0
	s.mu.Unlock()
}
