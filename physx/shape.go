// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physx

import (
	"math"

	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/narrowphase"
)

// Shape is the per-body collision metadata the simulation needs but
// doesn't store itself: the kind a registered tester is keyed on, a
// local-space half-extent for broadphase AABB prediction, and a friction
// coefficient combined pairwise at contact generation time. Concrete
// shape geometry (the actual box/sphere/hull data a tester reads) belongs
// to the host application; the simulation only ever needs these three
// numbers.
type Shape struct {
	Kind       narrowphase.ShapeKind
	HalfExtent lin.Vec3
	Friction   float32
}

// combinedFriction follows the usual geometric-mean combination rule: two
// low-friction surfaces stay low, one high and one low settles near the
// low one's value rather than the high one dominating.
func combinedFriction(a, b float32) float32 {
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}
	p := a * b
	if p <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(p)))
}
