// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package solver is the type-batched sequential-impulse constraint
// solver: bodies referenced by any constraint in a batch are disjoint
// from every other constraint in that batch, so every constraint in a
// batch can be processed without a write conflict; batches themselves are
// processed in order because a later batch may reference a body an
// earlier one already touched.
package solver

import (
	"fmt"

	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/pairs"
)

// Location is where a constraint handle currently lives: which batch,
// which kind's type batch within it, and its index in that type batch's
// arrays.
type Location struct {
	Batch int
	Kind  pairs.Kind
	Index int
}

// batch is one conflict-free set of constraints: Referenced counts, per
// body handle, how many live constraints in this batch use that body (so
// removal can tell when a body is no longer referenced by anything in the
// batch). TypeBatches holds one TypeBatch per distinct constraint Kind
// present in the batch.
type batch struct {
	referenced  map[handle.Handle]int
	typeBatches map[pairs.Kind]*TypeBatch
}

func newBatch() *batch {
	return &batch{referenced: map[handle.Handle]int{}, typeBatches: map[pairs.Kind]*TypeBatch{}}
}

func (b *batch) disjointFrom(a, c handle.Handle) bool {
	return b.referenced[a] == 0 && b.referenced[c] == 0
}

// Solver owns every batch and the handle→location map for realized
// constraints.
type Solver struct {
	handles *handle.Table
	batches []*batch
	at      map[handle.Handle]Location
	Params  Params
}

// New creates an empty solver with the given iteration/softness parameters.
func New(p Params) *Solver {
	return &Solver{handles: handle.NewTable(), at: map[handle.Handle]Location{}, Params: p}
}

// BatchCount returns the number of batches currently in use.
func (s *Solver) BatchCount() int { return len(s.batches) }

// Add places a new constraint of the given kind between bodies a and b,
// assigning it to the lowest-index batch whose referenced set is disjoint
// from {a, b} (creating a new batch if none qualifies), and returns its
// stable handle. data is the kind-specific prestep description (e.g.
// *ContactDescription or *BallSocketDescription).
func (s *Solver) Add(a, b handle.Handle, kind pairs.Kind, data any) handle.Handle {
	bi := -1
	for i, bt := range s.batches {
		if bt.disjointFrom(a, b) {
			bi = i
			break
		}
	}
	if bi < 0 {
		s.batches = append(s.batches, newBatch())
		bi = len(s.batches) - 1
	}
	bt := s.batches[bi]

	tb, ok := bt.typeBatches[kind]
	if !ok {
		tb = newTypeBatch(kind)
		bt.typeBatches[kind] = tb
	}
	h := s.handles.Create()
	idx := tb.insert(h, a, b, data)

	bt.referenced[a]++
	bt.referenced[b]++

	s.at[h] = Location{Batch: bi, Kind: kind, Index: idx}
	return h
}

// Remove deletes a constraint. Removal may relocate another constraint in
// the same type batch into the vacated slot (swap-removal); that
// constraint's Location is updated in place so its handle keeps resolving
// correctly.
func (s *Solver) Remove(h handle.Handle) {
	loc, ok := s.at[h]
	if !ok {
		return
	}
	bt := s.batches[loc.Batch]
	tb := bt.typeBatches[loc.Kind]
	a, b, moved, movedTo := tb.remove(loc.Index)

	bt.referenced[a]--
	if bt.referenced[a] <= 0 {
		delete(bt.referenced, a)
	}
	bt.referenced[b]--
	if bt.referenced[b] <= 0 {
		delete(bt.referenced, b)
	}

	delete(s.at, h)
	if moved != handle.Nil {
		s.at[moved] = Location{Batch: loc.Batch, Kind: loc.Kind, Index: movedTo}
	}
}

// RemoveReturning deletes a constraint like Remove, but also reports its
// kind, bodies, and stored description, so the caller can restore it later
// without rebuilding from scratch — used when a sleeping island's
// constraints are migrated out of the active batches, since rebuilding
// would discard their accumulated warm-start impulses.
func (s *Solver) RemoveReturning(h handle.Handle) (kind pairs.Kind, a, b handle.Handle, data any, ok bool) {
	loc, ok := s.at[h]
	if !ok {
		return 0, handle.Nil, handle.Nil, nil, false
	}
	tb := s.batches[loc.Batch].typeBatches[loc.Kind]
	a, b = tb.Bodies(loc.Index)
	data = tb.Data(loc.Index)
	kind = loc.Kind
	s.Remove(h)
	return kind, a, b, data, true
}

// Location reports where h currently lives, for diagnostics and tests.
func (s *Solver) Location(h handle.Handle) (Location, bool) {
	loc, ok := s.at[h]
	return loc, ok
}

// Data returns the kind-specific description currently stored for h, so a
// caller refreshing a manifold can read back the previous step's
// accumulated impulses before overwriting it with SetData.
func (s *Solver) Data(h handle.Handle) (any, bool) {
	loc, ok := s.at[h]
	if !ok {
		return nil, false
	}
	tb := s.batches[loc.Batch].typeBatches[loc.Kind]
	return tb.Data(loc.Index), true
}

// SetData replaces the kind-specific description stored for h, e.g. when
// narrow phase refreshes a manifold that kept the same Kind (so the pair
// cache's entry, and this constraint's batch slot, didn't need to move).
func (s *Solver) SetData(h handle.Handle, data any) bool {
	loc, ok := s.at[h]
	if !ok {
		return false
	}
	s.batches[loc.Batch].typeBatches[loc.Kind].SetData(loc.Index, data)
	return true
}

// batchDisjointnessHolds checks each batch's referenced map and returns an
// error if any recorded body handle has a non-positive refcount.
// Disjointness between different batches is not checked (batches may
// share bodies; only within a batch must handles be disjoint).
func (s *Solver) batchDisjointnessHolds() error {
	for bi, bt := range s.batches {
		for h, n := range bt.referenced {
			if n <= 0 {
				return fmt.Errorf("batch %d: handle %v has non-positive refcount %d", bi, h, n)
			}
		}
	}
	return nil
}
