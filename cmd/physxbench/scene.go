// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package main

import (
	"math/rand"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/config"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/narrowphase"
	"github.com/gazed/physx/physx"
	"github.com/prometheus/client_golang/prometheus"
)

// sceneParams describes the scene buildScene assembles: a flat bed of
// static spheres as the ground plane's stand-in, and a column of dynamic
// spheres dropped above it from randomized (seeded) offsets.
type sceneParams struct {
	bodies      int
	seed        int64
	radius      float32
	friction    float32
	groundTiles int
}

// buildScene creates a Simulation and populates it per params, returning
// the handles of the dynamic (dropped) bodies for the reporter to track.
func buildScene(params sceneParams, opts ...config.Option) (*physx.Simulation, []handle.Handle) {
	testers := narrowphase.NewRegistry()
	radii := newSphereRadii()

	sim := physx.New(testers, prometheus.NewRegistry(), nil, opts...)
	registerSphereSphere(testers, sim.Store(), radii)

	rng := rand.New(rand.NewSource(params.seed))

	groundRadius := float32(20)
	for i := 0; i < params.groundTiles; i++ {
		x := (float32(i) - float32(params.groundTiles)/2) * (groundRadius * 1.5)
		h := sim.AddStatic(body.Properties{
			Position:    lin.V3(x, -groundRadius, 0),
			Orientation: lin.QuatI,
		}, shapeFor(groundRadius, params.friction))
		radii.set(h, groundRadius)
	}

	dropped := make([]handle.Handle, 0, params.bodies)
	for i := 0; i < params.bodies; i++ {
		pos := lin.V3(
			(rng.Float32()-0.5)*10,
			float32(5+i)*(params.radius*2.2),
			(rng.Float32()-0.5)*10,
		)
		invMass := float32(1)
		invInertia := invMass * (2.0 / 5.0) / (params.radius * params.radius)
		p := body.Properties{
			Position:       pos,
			Orientation:    lin.QuatI,
			InverseMass:    invMass,
			InverseInertia: lin.Sym3{Xx: invInertia, Yy: invInertia, Zz: invInertia},
		}
		h := sim.AddBody(p, shapeFor(params.radius, params.friction))
		radii.set(h, params.radius)
		dropped = append(dropped, h)
	}

	return sim, dropped
}
