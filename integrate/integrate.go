// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package integrate is the pose integrator: it advances every active
// body's position and orientation by its current velocity, rotates the
// body's inverse inertia tensor into world space, runs a caller-supplied
// velocity callback (gravity, drag, thrusters), tracks sleep candidacy,
// and predicts a bounding box for the broadphase.
package integrate

import (
	"github.com/gazed/physx/body"
	"github.com/gazed/physx/broadphase"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

// AngularVelocityEpsilon is the minimum angular speed (rad/s) below which
// orientation integration is skipped outright, so a perfectly resting body
// never accumulates normalization drift.
const AngularVelocityEpsilon = 1e-15

// VelocityCallback lets the caller apply external forces — gravity, drag,
// per-body thrust — between orientation integration and sleep-candidacy
// bookkeeping. worker identifies which parallel slice is calling, for
// callers keeping per-worker accumulators (e.g. RNG state for a
// stochastic force).
type VelocityCallback func(h handle.Handle, worker int, linear, angular *lin.Vec3)

// Params controls one Integrator's behavior.
type Params struct {
	SleepThreshold   float32 // squared-velocity below which the sleep counter advances
	SleepMinCounter  uint32  // consecutive below-threshold steps required to set the sleep candidate flag
	BBoxMargin       float32 // fixed AABB expansion added for collision continuity
	BBoxVelocityScale float32 // additional AABB expansion proportional to velocity·dt
}

// DefaultParams are reasonable defaults for a meter/kilogram/second scene.
func DefaultParams() Params {
	return Params{
		SleepThreshold:    0.01 * 0.01,
		SleepMinCounter:   30,
		BBoxMargin:        0.01,
		BBoxVelocityScale: 2.0,
	}
}

// Integrator advances the active set's poses and tracks sleep candidacy.
type Integrator struct {
	params Params
	// Candidate reports, per active-set index, whether that body just
	// became (or remained) a sleep candidate this step. The sleeper reads
	// this after Step to decide which islands to put to sleep.
	Candidate []bool
}

// New creates an Integrator with the given parameters.
func New(p Params) *Integrator {
	return &Integrator{params: p}
}

// BBoxFunc computes a body's local-space bounding box given its inverse
// inertia's implied extent is not enough information on its own — callers
// supply the actual shape extent (half-extents in local space) per body.
type BBoxFunc func(h handle.Handle) (halfExtent lin.Vec3)

// Step performs the full integrate-and-predict-bboxes variant: every
// active body's position and orientation are mutated, its world inverse
// inertia refreshed, cb is invoked to let the caller apply forces, sleep
// candidacy is updated, and a predicted AABB is emitted via emit.
func (ig *Integrator) Step(s *body.Store, dt float32, cb VelocityCallback, halfExtent BBoxFunc, worker int, emit func(h handle.Handle, box broadphase.AABB)) {
	ig.integrate(s, dt, cb, true, halfExtent, worker, emit)
}

// PredictOnly computes predicted AABBs and advances sleep-candidacy
// bookkeeping using the body's current (un-mutated) velocity, without
// touching position, orientation, or world inertia. Used by timesteppers
// that integrate pose elsewhere (e.g. a dedicated PGS position pass) but
// still need this step's candidate overlap set.
func (ig *Integrator) PredictOnly(s *body.Store, dt float32, halfExtent BBoxFunc, emit func(h handle.Handle, box broadphase.AABB)) {
	ig.integrate(s, dt, nil, false, halfExtent, 0, emit)
}

func (ig *Integrator) integrate(s *body.Store, dt float32, cb VelocityCallback, mutate bool, halfExtent BBoxFunc, worker int, emit func(h handle.Handle, box broadphase.AABB)) {
	handles := s.Handles(body.ActiveSet)
	if cap(ig.Candidate) < len(handles) {
		ig.Candidate = make([]bool, len(handles))
	}
	ig.Candidate = ig.Candidate[:len(handles)]

	for i, h := range handles {
		pos := s.Position(h)
		orient := s.Orientation(h)
		lv := s.LinearVelocity(h)
		av := s.AngularVelocity(h)

		if mutate {
			pos = pos.Add(lv.Scale(dt))
			orient = orient.IntegrateAngularVelocity(av, dt, AngularVelocityEpsilon)
			world := lin.RotateSym3(orient.Mat3(), s.InverseInertiaLocal(h))
			s.SetPosition(h, pos)
			s.SetOrientation(h, orient)
			s.SetInverseInertiaWorld(h, world)
		}

		if cb != nil {
			cb(h, worker, &lv, &av)
			if mutate {
				s.SetLinearVelocity(h, lv)
				s.SetAngularVelocity(h, av)
			}
		}

		hh := lv.LenSq() + av.LenSq()
		if hh > ig.params.SleepThreshold {
			s.SetSleepTime(h, 0)
			ig.Candidate[i] = false
		} else {
			t := s.SleepTime(h) + 1
			s.SetSleepTime(h, t)
			ig.Candidate[i] = t >= float32(ig.params.SleepMinCounter)
		}

		if emit != nil {
			emit(h, predictedBox(pos, lv, halfExtent(h), ig.params, dt))
		}
	}
}

func predictedBox(pos lin.Vec3, lv lin.Vec3, halfExtent lin.Vec3, p Params, dt float32) broadphase.AABB {
	tight := broadphase.AABB{Min: pos.Sub(halfExtent), Max: pos.Add(halfExtent)}
	disp := lv.Scale(dt * p.BBoxVelocityScale)
	grown := broadphase.Expand(tight, p.BBoxMargin)
	if disp.X < 0 {
		grown.Min.X += disp.X
	} else {
		grown.Max.X += disp.X
	}
	if disp.Y < 0 {
		grown.Min.Y += disp.Y
	} else {
		grown.Max.Y += disp.Y
	}
	if disp.Z < 0 {
		grown.Min.Z += disp.Z
	} else {
		grown.Max.Z += disp.Z
	}
	return grown
}
