// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package main

import (
	"math"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/narrowphase"
	"github.com/gazed/physx/physx"
)

// sphereKind is the only shape kind physxbench exercises: a uniform
// sphere identified by radius alone. Real hosts register box/hull/compound
// testers the same way; this one stays deliberately minimal so the
// benchmark's bottleneck is the solver, not collision detection.
const sphereKind narrowphase.ShapeKind = 1

// sphereRadii looks up a body's radius for the sphere-sphere tester,
// since narrowphase.Tester only carries handles, not shape data.
type sphereRadii struct {
	byHandle map[handle.Handle]float32
}

func newSphereRadii() *sphereRadii {
	return &sphereRadii{byHandle: map[handle.Handle]float32{}}
}

func (r *sphereRadii) set(h handle.Handle, radius float32) { r.byHandle[h] = radius }

// registerSphereSphere installs a single-point sphere-sphere tester,
// adapted from the separation-distance-along-center-line test the engine
// uses for its own sphere colliders: contact normal points from A's
// center to B's (the solver's convention), the contact offset lands on
// A's surface along it, depth is negative
// when the spheres are still apart (a speculative contact).
func registerSphereSphere(testers *narrowphase.Registry, st *body.Store, radii *sphereRadii) {
	testers.Register(sphereKind, sphereKind, func(worker int, pair narrowphase.Pair) (narrowphase.Manifold, bool) {
		ra, rb := radii.byHandle[pair.A], radii.byHandle[pair.B]
		la, lb := st.Position(pair.A), st.Position(pair.B)

		d := lb.Sub(la)
		separation := float32(math.Sqrt(float64(d.X*d.X + d.Y*d.Y + d.Z*d.Z)))

		const speculativeMargin = 0.05
		if separation > ra+rb+speculativeMargin {
			return narrowphase.Manifold{}, false
		}

		normal := lin.V3(1, 0, 0)
		if separation > 1e-6 {
			normal = lin.V3(d.X/separation, d.Y/separation, d.Z/separation)
		}
		offsetA := normal.Scale(ra)

		return narrowphase.Manifold{
			Convex: true,
			Normal: normal,
			Contacts: []narrowphase.Contact{
				{OffsetA: offsetA, Depth: (ra + rb) - separation, Feature: 1},
			},
		}, true
	})
}

// shapeFor returns the physx.Shape fed to AddBody/AddStatic for a sphere
// of the given radius and friction; the half extent covers the sphere's
// bounding cube so broadphase's AABB never understates the sphere's
// footprint.
func shapeFor(radius, friction float32) physx.Shape {
	return physx.Shape{
		Kind:       sphereKind,
		HalfExtent: lin.V3(radius, radius, radius),
		Friction:   friction,
	}
}
