// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package broadphase

import (
	"testing"

	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

func box(cx, cy, cz, half float32) AABB {
	c := lin.V3(cx, cy, cz)
	h := lin.V3(half, half, half)
	return AABB{Min: c.Sub(h), Max: c.Add(h)}
}

func TestOverlapsDetectsActivePair(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	b := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	bp.AddActive(b, box(0.5, 0, 0, 1))

	var got []Pair
	bp.Overlaps(func(p Pair) { got = append(got, p) })
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 overlapping pair, got %d", len(got))
	}
}

func TestOverlapsIgnoresFarApartBodies(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	b := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	bp.AddActive(b, box(100, 100, 100, 1))

	var got []Pair
	bp.Overlaps(func(p Pair) { got = append(got, p) })
	if len(got) != 0 {
		t.Errorf("expected no pairs for far-apart bodies, got %d", len(got))
	}
}

func TestOverlapsIncludesActiveStaticPair(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	s := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	bp.AddStatic(s, box(0, 0, 0, 1))

	var got []Pair
	bp.Overlaps(func(p Pair) { got = append(got, p) })
	if len(got) != 1 {
		t.Fatalf("expected 1 active-static pair, got %d", len(got))
	}
}

func TestMoveWithinFatBoxDoesNotMutateTree(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	moved := bp.UpdateActive(a, box(0.01, 0, 0, 1), lin.V3(0.01, 0, 0))
	if moved {
		t.Errorf("small motion within the fat margin should not trigger a tree mutation")
	}
}

func TestMoveOutsideFatBoxMutatesTree(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	moved := bp.UpdateActive(a, box(50, 0, 0, 1), lin.V3(50, 0, 0))
	if !moved {
		t.Errorf("large motion escaping the fat box should trigger a tree mutation")
	}
}

func TestActivateAndDeactivateMigrateBetweenTrees(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	s := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	bp.AddStatic(s, box(10, 10, 10, 1))

	bp.Deactivate(a, box(0, 0, 0, 1))
	if r := bp.proxy[a]; !r.inStatic {
		t.Errorf("Deactivate should migrate the body into the static tree")
	}

	bp.Activate(a, box(0, 0, 0, 1))
	if r := bp.proxy[a]; r.inStatic {
		t.Errorf("Activate should migrate the body back into the active tree")
	}
}

func TestRemoveDropsFromQueries(t *testing.T) {
	bp := New()
	tbl := handle.NewTable()
	a := tbl.Create()
	b := tbl.Create()
	bp.AddActive(a, box(0, 0, 0, 1))
	bp.AddActive(b, box(0.5, 0, 0, 1))
	bp.Remove(a)

	var got []Pair
	bp.Overlaps(func(p Pair) { got = append(got, p) })
	if len(got) != 0 {
		t.Errorf("removed body should not participate in overlaps, got %d pairs", len(got))
	}
}
