// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package broadphase

import "github.com/gazed/physx/lin"

// AABB is an axis-aligned bounding box, the leaf geometry the tree stores
// and queries against.
type AABB struct {
	Min, Max lin.Vec3
}

// Union returns the smallest AABB containing both a and b.
func Union(a, b AABB) AABB {
	return AABB{
		Min: lin.V3(min32(a.Min.X, b.Min.X), min32(a.Min.Y, b.Min.Y), min32(a.Min.Z, b.Min.Z)),
		Max: lin.V3(max32(a.Max.X, b.Max.X), max32(a.Max.Y, b.Max.Y), max32(a.Max.Z, b.Max.Z)),
	}
}

// Contains reports whether outer fully contains inner.
func Contains(outer, inner AABB) bool {
	return outer.Min.X <= inner.Min.X && outer.Min.Y <= inner.Min.Y && outer.Min.Z <= inner.Min.Z &&
		outer.Max.X >= inner.Max.X && outer.Max.Y >= inner.Max.Y && outer.Max.Z >= inner.Max.Z
}

// Overlaps reports whether a and b intersect, including touching at a face.
func Overlaps(a, b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Expand returns box grown by margin on every face, the "fattening" a
// dynamic body's leaf carries so small motions don't force a tree update
// every step.
func Expand(box AABB, margin float32) AABB {
	m := lin.V3(margin, margin, margin)
	return AABB{Min: box.Min.Sub(m), Max: box.Max.Add(m)}
}

// Area returns the surface area of box, the cost metric the insertion
// heuristic minimizes.
func (b AABB) Area() float32 {
	d := b.Max.Sub(b.Min)
	return 2 * (d.X*d.Y + d.Y*d.Z + d.Z*d.X)
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
