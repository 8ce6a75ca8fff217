// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package handle implements the dense-index-plus-generation handle scheme
// used everywhere a caller needs a stable reference into storage that
// itself moves entries around (the body store's active/inactive sets, the
// constraint graph's type batches, the pair cache). A Handle survives
// compaction and reuse of its slot; a stale Handle into a freed-then-reused
// slot is detected rather than silently aliasing the new occupant.
package handle

import "fmt"

// indexBits/genBits split a Handle's 32-bit payload the same way the
// engine's original dense-id scheme does: most of the range goes to the
// index since a running simulation can have far more live bodies than it
// will ever recycle a single slot.
const (
	indexBits = 20
	genBits   = 12
	indexMask = 1<<indexBits - 1
	genMask   = 1<<genBits - 1
	maxIndex  = 1 << indexBits
	maxGen    = 1 << genBits
)

// Handle is an opaque, stable reference: 20 bits of slot index and 12 bits
// of generation (edition) counter packed into a uint32. The zero Handle is
// reserved and never issued by Table.Create.
type Handle uint32

// Nil is the reserved zero handle, never returned by Table.Create.
const Nil Handle = 0

func pack(index, gen uint32) Handle {
	return Handle((gen&genMask)<<indexBits | (index & indexMask))
}

// Index returns the slot index a Handle addresses.
func (h Handle) Index() uint32 { return uint32(h) & indexMask }

// Generation returns the edition counter a Handle was issued with.
func (h Handle) Generation() uint32 { return (uint32(h) >> indexBits) & genMask }

func (h Handle) String() string {
	return fmt.Sprintf("Handle(index=%d, gen=%d)", h.Index(), h.Generation())
}

// Table allocates and recycles Handles. It does not store any payload
// itself — callers keep a parallel slice indexed by Handle.Index() and use
// Table purely to know which indices are live and to validate a Handle
// before trusting it addresses the caller's current occupant of that slot.
type Table struct {
	generations []uint32 // generation currently valid at each index
	live        []bool   // whether the index is currently allocated
	free        []uint32 // free list of indices, LIFO
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{}
}

// Create allocates a new Handle, reusing a freed index when one is
// available (bumping its generation so stale Handles into it are
// detected) or growing the table when the free list is empty.
func (t *Table) Create() Handle {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.live[idx] = true
		return pack(idx, t.generations[idx])
	}
	idx := uint32(len(t.generations))
	if idx >= maxIndex {
		panic(fmt.Sprintf("handle: table exhausted at %d indices", maxIndex))
	}
	t.generations = append(t.generations, 1)
	t.live = append(t.live, true)
	return pack(idx, 1)
}

// Valid reports whether h addresses a currently live slot at its issued
// generation. A Handle to a freed (or never-allocated) slot, or one whose
// slot has since been recycled to a newer generation, is not valid.
func (t *Table) Valid(h Handle) bool {
	idx := h.Index()
	if int(idx) >= len(t.generations) {
		return false
	}
	return t.live[idx] && t.generations[idx] == h.Generation()
}

// Dispose frees h's slot, bumping its generation (wrapping within genBits)
// so any other outstanding Handle referencing the same index is
// invalidated. Disposing an already-invalid Handle is a no-op.
func (t *Table) Dispose(h Handle) {
	if !t.Valid(h) {
		return
	}
	idx := h.Index()
	t.live[idx] = false
	g := (t.generations[idx] + 1) & genMask
	if g == 0 {
		g = 1 // generation 0 would let index 0 pack to Nil
	}
	t.generations[idx] = g
	t.free = append(t.free, idx)
}

// Len returns the number of currently live handles.
func (t *Table) Len() int {
	n := 0
	for _, v := range t.live {
		if v {
			n++
		}
	}
	return n
}

// Reset clears the table back to empty, as if newly created.
func (t *Table) Reset() {
	t.generations = t.generations[:0]
	t.live = t.live[:0]
	t.free = t.free[:0]
}
