// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package broadphase finds candidate overlapping pairs among active
// bodies and between active bodies and the static world, using a dynamic
// AABB tree per partition — mirroring the dual static/dynamic tree split
// a constraint-solver world keeps so a sleeping or static shape never pays
// the update cost a moving one does.
package broadphase

import (
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

// Pair is an unordered, order-stable candidate collision pair. A and B are
// always stored with the lower handle value first so the same pair always
// hashes and compares identically regardless of discovery order.
type Pair struct {
	A, B handle.Handle
}

func makePair(a, b handle.Handle) Pair {
	if a <= b {
		return Pair{a, b}
	}
	return Pair{b, a}
}

// Broadphase tracks active (dynamic) leaves in one tree and static leaves
// in another, and finds overlaps both within the active tree and between
// active leaves and the static tree.
type Broadphase struct {
	active *Tree
	static *Tree
	// proxy remembers which tree + proxy id a handle currently owns, so
	// Update/Remove don't require the caller to track tree membership.
	proxy map[handle.Handle]ref
}

type ref struct {
	inStatic bool
	proxyID  int
}

// New creates an empty broadphase.
func New() *Broadphase {
	return &Broadphase{
		active: NewTree(),
		static: NewTree(),
		proxy:  map[handle.Handle]ref{},
	}
}

// AddActive inserts a dynamic (awake) body's bounding box.
func (b *Broadphase) AddActive(h handle.Handle, box AABB) {
	id := b.active.Insert(box, h)
	b.proxy[h] = ref{inStatic: false, proxyID: id}
}

// AddStatic inserts a static (never-moving) body's bounding box. The leaf
// is fattened by the same margin as an active leaf; it is never moved.
func (b *Broadphase) AddStatic(h handle.Handle, box AABB) {
	id := b.static.Insert(box, h)
	b.proxy[h] = ref{inStatic: true, proxyID: id}
}

// Remove deletes h from whichever tree currently holds it.
func (b *Broadphase) Remove(h handle.Handle) {
	r, ok := b.proxy[h]
	if !ok {
		return
	}
	if r.inStatic {
		b.static.Remove(r.proxyID)
	} else {
		b.active.Remove(r.proxyID)
	}
	delete(b.proxy, h)
}

// UpdateActive refreshes an active body's tight bounding box, re-fattening
// and relocating its leaf only if the tight box escaped the existing fat
// one. Returns true if a tree mutation occurred. A handle that is unknown
// or held in the static tree is left untouched and reports false.
func (b *Broadphase) UpdateActive(h handle.Handle, tight AABB, displacement lin.Vec3) bool {
	r, ok := b.proxy[h]
	if !ok || r.inStatic {
		return false
	}
	return b.active.Move(r.proxyID, tight, displacement)
}

// Box returns h's current bounding box, from whichever tree holds it.
func (b *Broadphase) Box(h handle.Handle) (AABB, bool) {
	r, ok := b.proxy[h]
	if !ok {
		return AABB{}, false
	}
	if r.inStatic {
		return b.static.Box(r.proxyID), true
	}
	return b.active.Box(r.proxyID), true
}

// Activate migrates h from the static tree to the active tree, as happens
// when a body referencing a static shape wakes. No-op if h is not
// currently a static leaf.
func (b *Broadphase) Activate(h handle.Handle, box AABB) {
	r, ok := b.proxy[h]
	if !ok || !r.inStatic {
		return
	}
	b.static.Remove(r.proxyID)
	id := b.active.Insert(box, h)
	b.proxy[h] = ref{inStatic: false, proxyID: id}
}

// Deactivate migrates h from the active tree to the static tree, as
// happens when a body falls asleep. No-op if h is not currently an active
// leaf.
func (b *Broadphase) Deactivate(h handle.Handle, box AABB) {
	r, ok := b.proxy[h]
	if !ok || r.inStatic {
		return
	}
	b.active.Remove(r.proxyID)
	id := b.static.Insert(box, h)
	b.proxy[h] = ref{inStatic: true, proxyID: id}
}

// Overlaps enumerates every candidate pair this step: active-active pairs
// (each unordered pair reported once) and active-static pairs. visit
// should return quickly; pairs are not deduplicated against a previous
// frame's result — that's the pair cache's job.
func (b *Broadphase) Overlaps(visit func(Pair)) {
	reported := map[Pair]bool{}
	b.active.Query(AABB{Min: lin.V3(-inf, -inf, -inf), Max: lin.V3(inf, inf, inf)}, func(proxyID int) bool {
		ha := b.active.Payload(proxyID)
		box := b.active.Box(proxyID)
		b.active.Query(box, func(other int) bool {
			if other == proxyID {
				return true
			}
			hb := b.active.Payload(other)
			p := makePair(ha, hb)
			if !reported[p] {
				reported[p] = true
				visit(p)
			}
			return true
		})
		b.static.Query(box, func(sid int) bool {
			hb := b.static.Payload(sid)
			p := makePair(ha, hb)
			if !reported[p] {
				reported[p] = true
				visit(p)
			}
			return true
		})
		return true
	})
}

const inf = 1e30
