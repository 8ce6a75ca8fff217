// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package sleep finds islands of mutually-touching bodies that have been
// below the integrator's sleep-candidacy threshold for long enough, and
// migrates them out of the active set; Wake does the reverse when a
// newly-added or newly-touched constraint reaches into a sleeping island.
package sleep

import (
	"github.com/gazed/physx/body"
	"github.com/gazed/physx/broadphase"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/pairs"
)

// Graph is the subset of the constraint graph the sleeper needs: every
// live body pair currently tracked by the pair cache. Kept as an interface
// so the sleeper doesn't depend on pairs.Cache's full surface.
type Graph interface {
	Pairs() []pairs.Pair
}

// MinSleepSteps is how many consecutive below-threshold steps (the
// integrator's body.Store.SleepTime counter) a body must accumulate before
// it's eligible to join a sleeping island — matches
// integrate.DefaultParams().SleepMinCounter so a body becomes a sleep
// candidate in the integrator at the same moment it becomes eligible here.
const MinSleepSteps = 30

// Island is one connected component of touching bodies, all eligible to
// sleep together.
type Island []handle.Handle

// FindSleepyIslands unions bodies connected by a live pair into connected
// components (kinematic bodies, invMass == 0, never join or propagate a
// component: they are excluded from the union so a conveyor belt touching
// a stack never keeps it from sleeping), then returns every component all
// of whose bodies have SleepTime >= MinSleepSteps. A component made only
// of kinematic bodies is never returned.
func FindSleepyIslands(st *body.Store, g Graph) []Island {
	active := st.Handles(body.ActiveSet)
	if len(active) == 0 {
		return nil
	}

	uf := newUnionFind(active)
	for _, p := range g.Pairs() {
		if !st.Contains(p.A) || !st.Contains(p.B) {
			continue
		}
		setA, okA := st.SetOf(p.A)
		setB, okB := st.SetOf(p.B)
		if !okA || !okB || setA != body.ActiveSet || setB != body.ActiveSet {
			continue
		}
		if st.IsKinematic(p.A) || st.IsKinematic(p.B) {
			continue
		}
		uf.union(p.A, p.B)
	}

	groups := uf.groups()
	var islands []Island
	for _, members := range groups {
		sleepy, hasDynamic := true, false
		for _, h := range members {
			if st.IsKinematic(h) {
				continue
			}
			hasDynamic = true
			if st.SleepTime(h) < MinSleepSteps {
				sleepy = false
				break
			}
		}
		if sleepy && hasDynamic {
			islands = append(islands, Island(members))
		}
	}
	return islands
}

// ConstraintGraph is what Put/Wake need from the pair cache to migrate an
// island's constraints alongside its bodies: every live pair, per-pair
// lookup, and the ability to repoint a pair's entry at a freshly restored
// constraint handle after Wake.
type ConstraintGraph interface {
	Pairs() []pairs.Pair
	Get(p pairs.Pair) (pairs.Entry, bool)
	Reassign(p pairs.Pair, h handle.Handle)
}

// ConstraintStore is what Put/Wake need from the solver to move an
// island's constraints out of the active batches and back in again,
// preserving their prestep state (including warm-start impulses) across
// the move rather than rebuilding it from scratch.
type ConstraintStore interface {
	RemoveReturning(h handle.Handle) (kind pairs.Kind, a, b handle.Handle, data any, ok bool)
	Add(a, b handle.Handle, kind pairs.Kind, data any) handle.Handle
}

type stashedConstraint struct {
	pair pairs.Pair
	kind pairs.Kind
	a, b handle.Handle
	data any
}

// Inactive holds the constraints migrated out of the active solver for
// every sleeping set, so Wake can restore them without losing their
// accumulated impulses. The zero value is not ready for use; call
// NewInactive.
type Inactive struct {
	bySet map[int][]stashedConstraint
}

// NewInactive creates an empty inactive-constraint store.
func NewInactive() *Inactive {
	return &Inactive{bySet: map[int][]stashedConstraint{}}
}

// Put migrates every body in island into a freshly-allocated inactive set,
// removes its shapes from the broadphase's active tree, and pulls every
// constraint wholly within the island out of the active solver batches
// into inactive, so a sleeping island stops being prestepped/warm-started/
// iterated every step. Returns the new set's index.
func Put(st *body.Store, bp *broadphase.Broadphase, cg ConstraintGraph, cs ConstraintStore, inactive *Inactive, island Island) int {
	setIdx := st.NewInactiveSet()

	members := make(map[handle.Handle]bool, len(island))
	for _, h := range island {
		members[h] = true
	}
	for _, p := range cg.Pairs() {
		if !members[p.A] || !members[p.B] {
			continue
		}
		e, ok := cg.Get(p)
		if !ok {
			continue
		}
		kind, a, b, data, ok := cs.RemoveReturning(e.ConstraintHandle)
		if !ok {
			continue
		}
		inactive.bySet[setIdx] = append(inactive.bySet[setIdx], stashedConstraint{pair: p, kind: kind, a: a, b: b, data: data})
	}

	for _, h := range island {
		if box, ok := bp.Box(h); ok {
			bp.Deactivate(h, box)
		}
		st.MoveToSet(h, setIdx)
	}
	return setIdx
}

// Wake migrates every body in an inactive set back to the active set,
// restores its broadphase leaf to the active tree, and restores every
// constraint Put migrated out of the solver for that set, reassigning the
// pair cache's entries to the freshly re-added constraint handles. The
// caller (the step driver, via the pair cache's Flush-reported wake list)
// is still responsible for waking a set reached into by a brand-new
// constraint; Wake itself only restores what Put previously stashed.
func Wake(st *body.Store, bp *broadphase.Broadphase, cg ConstraintGraph, cs ConstraintStore, inactive *Inactive, setIdx int) {
	handles := append([]handle.Handle(nil), st.Handles(setIdx)...)
	for _, h := range handles {
		if box, ok := bp.Box(h); ok {
			bp.Activate(h, box)
		}
		st.MoveToSet(h, body.ActiveSet)
	}

	for _, sc := range inactive.bySet[setIdx] {
		h := cs.Add(sc.a, sc.b, sc.kind, sc.data)
		cg.Reassign(sc.pair, h)
	}
	delete(inactive.bySet, setIdx)
}

type unionFind struct {
	parent map[handle.Handle]handle.Handle
	rank   map[handle.Handle]int
	order  []handle.Handle
}

func newUnionFind(members []handle.Handle) *unionFind {
	uf := &unionFind{
		parent: make(map[handle.Handle]handle.Handle, len(members)),
		rank:   make(map[handle.Handle]int, len(members)),
		order:  append([]handle.Handle(nil), members...),
	}
	for _, h := range members {
		uf.parent[h] = h
	}
	return uf
}

func (uf *unionFind) find(h handle.Handle) handle.Handle {
	root := h
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for h != root {
		h, uf.parent[h] = uf.parent[h], root
	}
	return root
}

func (uf *unionFind) union(a, b handle.Handle) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

func (uf *unionFind) groups() [][]handle.Handle {
	byRoot := map[handle.Handle][]handle.Handle{}
	for _, h := range uf.order {
		root := uf.find(h)
		byRoot[root] = append(byRoot[root], h)
	}
	groups := make([][]handle.Handle, 0, len(byRoot))
	for _, members := range byRoot {
		groups = append(groups, members)
	}
	return groups
}
