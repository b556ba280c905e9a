// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// entry is the content of one table slot. Entries are immutable once
// published except for the counters; a recycled slot gets a new entry.
type entry struct {
	version  uint32
	value    any
	bytes    uint64
	refs     atomic.Int32
	freed    atomic.Bool
	children []child
}

// child is a strong reference collected from an uploaded buffer.
type child struct {
	kind tableKind
	idx  uint32
	e    *entry
}

// retired is a freed slot waiting for its epoch to complete.
type retired struct {
	idx uint32
	tag uint64
}

// table is a fixed-capacity descriptor table. Slot reads are lock-free
// atomic loads; allocation and retirement take mu.
type table struct {
	kind  tableKind
	slots []atomic.Pointer[entry]

	mu      sync.Mutex
	free    []uint32
	retired []retired
	next    uint32
	live    int
}

// TableStats reports the occupancy of one descriptor table.
type TableStats struct {
	Capacity int
	Live     int
	Retired  int
	Free     int
}

func newTable(kind tableKind, capacity int) *table {
	return &table{
		kind:  kind,
		slots: make([]atomic.Pointer[entry], capacity),
	}
}

// load returns the entry at idx, or nil for an unused or out-of-range slot.
func (t *table) load(idx uint32) *entry {
	if int(idx) >= len(t.slots) {
		return nil
	}
	return t.slots[idx].Load()
}

// alloc publishes e in a free slot and assigns its version.
func (t *table) alloc(e *entry) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	switch {
	case len(t.free) > 0:
		idx = t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
	case int(t.next) < len(t.slots):
		idx = t.next
		t.next++
	default:
		return 0, fmt.Errorf("%w: %s table has %d slots", ErrTableFull, t.kind, len(t.slots))
	}

	e.version = 1
	if old := t.slots[idx].Load(); old != nil {
		e.version = old.version + 1
		if e.version == 0 {
			e.version = 1
		}
	}
	t.slots[idx].Store(e)
	t.live++
	return idx, nil
}

// retire queues idx for reuse once epoch tag has completed.
func (t *table) retire(idx uint32, tag uint64) {
	t.mu.Lock()
	t.retired = append(t.retired, retired{idx: idx, tag: tag})
	t.live--
	t.mu.Unlock()
}

// reclaim moves retired slots whose epoch has completed to the free list
// and returns the number of bytes they held.
func (t *table) reclaim(completed uint64) (n int, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.retired[:0]
	for _, r := range t.retired {
		if r.tag > completed {
			kept = append(kept, r)
			continue
		}
		old := t.slots[r.idx].Load()
		bytes += old.bytes
		tomb := &entry{version: old.version}
		tomb.freed.Store(true)
		t.slots[r.idx].Store(tomb)
		t.free = append(t.free, r.idx)
		n++
	}
	clear(t.retired[len(kept):])
	t.retired = kept
	return n, bytes
}

func (t *table) stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TableStats{
		Capacity: len(t.slots),
		Live:     t.live,
		Retired:  len(t.retired),
		Free:     len(t.free) + len(t.slots) - int(t.next),
	}
}
