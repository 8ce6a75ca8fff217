// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package pairs is the constraint graph / pair cache: an ordered map from
// collidable pair to the constraint (and cache) it currently owns.
// Narrow phase calls Update/Remove as manifolds come and go; structural
// changes (adds/removes) are deferred into per-call queues and only take
// effect when Flush runs them serially at the end of narrow phase, so the
// solver's batch-assignment bitsets are never mutated concurrently.
package pairs

import "github.com/gazed/physx/handle"

// Kind identifies what sort of constraint backs a pair: a contact
// manifold's size/sharedness, or one of the joint kinds solver.add
// supports. Defined here (rather than in package solver) so this package
// has no dependency on the solver's batch-storage internals.
type Kind uint8

const (
	KindNone Kind = iota
	KindContactConvex1
	KindContactConvex2
	KindContactConvex3
	KindContactConvex4
	KindContactNonConvex2
	KindContactNonConvex3
	KindContactNonConvex4
	KindContactNonConvex5
	KindContactNonConvex6
	KindContactNonConvex7
	KindContactNonConvex8
	KindBallSocket
	KindHinge
	KindSwivelHinge
	KindSwingLimit
	KindTwistLimit
	KindTwistServo
	KindTwistMotor
	KindAngularServo
	KindAngularMotor
	KindGrabServo
)

// ContactKind maps a manifold's convexity and point count to the Kind the
// solver should batch it under: convex manifolds with 1..4 points map to
// KindContactConvex1..4, non-convex manifolds with 2..8 points map to
// KindContactNonConvex2..8 (a single point is convex by definition — one
// normal is trivially shared by one point). Returns KindNone for a point
// count outside the kind this convexity supports.
func ContactKind(convex bool, points int) Kind {
	if convex {
		switch points {
		case 1:
			return KindContactConvex1
		case 2:
			return KindContactConvex2
		case 3:
			return KindContactConvex3
		case 4:
			return KindContactConvex4
		}
		return KindNone
	}
	switch points {
	case 2:
		return KindContactNonConvex2
	case 3:
		return KindContactNonConvex3
	case 4:
		return KindContactNonConvex4
	case 5:
		return KindContactNonConvex5
	case 6:
		return KindContactNonConvex6
	case 7:
		return KindContactNonConvex7
	case 8:
		return KindContactNonConvex8
	}
	return KindNone
}

// Pair is an ordered collidable pair: A is always the smaller handle, so
// the same physical pair maps to the same map key regardless of discovery
// order.
type Pair struct {
	A, B handle.Handle
}

// Make builds an ordered Pair from two (possibly unordered) handles.
func Make(a, b handle.Handle) Pair {
	if a <= b {
		return Pair{a, b}
	}
	return Pair{b, a}
}

// Entry is what the cache stores for a live pair.
type Entry struct {
	ConstraintHandle  handle.Handle
	Kind              Kind
	ConstraintCacheRef int
	CollisionCacheRef  int
}

type pendingAdd struct {
	pair  Pair
	kind  Kind
	a, b  handle.Handle
}

type pendingRemove struct {
	pair             Pair
	constraintHandle handle.Handle
}

// Cache is the constraint graph's pair cache.
type Cache struct {
	entries map[Pair]Entry
	adds    []pendingAdd
	removes []pendingRemove
	nextCollisionRef int
}

// NewCache creates an empty pair cache.
func NewCache() *Cache {
	return &Cache{entries: map[Pair]Entry{}}
}

// Get returns the current entry for pair, if any.
func (c *Cache) Get(p Pair) (Entry, bool) {
	e, ok := c.entries[p]
	return e, ok
}

// Len reports how many pairs currently have an entry. Update records an
// entry immediately, so adds not yet flushed are counted too.
func (c *Cache) Len() int { return len(c.entries) }

// Pairs returns every pair currently tracked by the cache, realized or
// still pending its Flush — used by the sleep system to build the
// constraint graph's connected components.
func (c *Cache) Pairs() []Pair {
	pairs := make([]Pair, 0, len(c.entries))
	for p := range c.entries {
		pairs = append(pairs, p)
	}
	return pairs
}

// Update records that narrow phase produced a manifold of the given kind
// for pair, backed by bodies a and b. If an entry already exists with a
// matching kind, this is a no-op from the graph's perspective — the
// caller (solver) is responsible for scattering the updated manifold's
// warm-start impulses into the existing type-batch slot using
// Entry.ConstraintHandle. If the entry exists with a different kind, the
// old constraint is enqueued for removal and a new one for addition. If
// no entry exists, an add is enqueued. A CollisionCacheRef is allocated
// immediately (cheap, just an index reservation) so the future manifold
// has somewhere to be cached even before the constraint handle is
// realized at Flush.
func (c *Cache) Update(p Pair, kind Kind, a, b handle.Handle) (existing Entry, changed bool) {
	if e, ok := c.entries[p]; ok {
		if e.Kind == kind {
			return e, false
		}
		c.removes = append(c.removes, pendingRemove{pair: p, constraintHandle: e.ConstraintHandle})
		delete(c.entries, p)
	}
	ref := c.nextCollisionRef
	c.nextCollisionRef++
	c.adds = append(c.adds, pendingAdd{pair: p, kind: kind, a: a, b: b})
	c.entries[p] = Entry{Kind: kind, CollisionCacheRef: ref}
	return Entry{}, true
}

// Remove enqueues removal of pair's current constraint, if any (e.g. the
// broadphase pair no longer overlaps).
func (c *Cache) Remove(p Pair) {
	e, ok := c.entries[p]
	if !ok {
		return
	}
	c.removes = append(c.removes, pendingRemove{pair: p, constraintHandle: e.ConstraintHandle})
	delete(c.entries, p)
}

// Reassign repoints pair's entry at a newly allocated constraint handle,
// used when sleep restores a constraint that was migrated out of the
// active solver while its bodies were asleep — the restored constraint
// gets a fresh handle from the solver's handle table, so the cache's
// record of which handle backs the pair must move with it.
func (c *Cache) Reassign(p Pair, h handle.Handle) {
	if e, ok := c.entries[p]; ok {
		e.ConstraintHandle = h
		c.entries[p] = e
	}
}

// AddFunc realizes a pending add by creating the actual constraint and
// returning its handle, for the solver to wire up via Flush.
type AddFunc func(a, b handle.Handle, kind Kind) handle.Handle

// RemoveFunc disposes a constraint previously returned by AddFunc.
type RemoveFunc func(h handle.Handle)

// IsInactiveFunc reports whether a body handle currently belongs to an
// inactive (sleeping) set.
type IsInactiveFunc func(h handle.Handle) bool

// Flush runs every deferred remove then every deferred add, in that
// order, against the real constraint storage via removeFn/addFn. It
// returns the distinct body handles that were referenced by a newly added
// constraint while still in an inactive set — the caller wakes those sets
// before integration.
func (c *Cache) Flush(addFn AddFunc, removeFn RemoveFunc, isInactive IsInactiveFunc) []handle.Handle {
	for _, r := range c.removes {
		removeFn(r.constraintHandle)
	}
	c.removes = c.removes[:0]

	var wake []handle.Handle
	seen := map[handle.Handle]bool{}
	for _, add := range c.adds {
		h := addFn(add.a, add.b, add.kind)
		e := c.entries[add.pair]
		e.ConstraintHandle = h
		c.entries[add.pair] = e

		for _, b := range [2]handle.Handle{add.a, add.b} {
			if isInactive(b) && !seen[b] {
				seen[b] = true
				wake = append(wake, b)
			}
		}
	}
	c.adds = c.adds[:0]
	return wake
}

// PendingAddCount and PendingRemoveCount expose queue depth for tests and
// diagnostics.
func (c *Cache) PendingAddCount() int    { return len(c.adds) }
func (c *Cache) PendingRemoveCount() int { return len(c.removes) }
