// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package physx ties the pipeline together: pose integration, bounding-box
// prediction, broadphase overlap, narrowphase manifold generation,
// constraint graph maintenance, batched iterative solve, and sleep
// management, run once per Step call the way the engine's own move.Step
// drives its collider/solver pair.
package physx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/broadphase"
	"github.com/gazed/physx/config"
	"github.com/gazed/physx/dispatch"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/integrate"
	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/metrics"
	"github.com/gazed/physx/narrowphase"
	"github.com/gazed/physx/pairs"
	"github.com/gazed/physx/pool"
	"github.com/gazed/physx/sleep"
	"github.com/gazed/physx/solver"
)

// Simulation owns the whole pipeline's state for one scene: the body
// store, the broadphase trees, the pair cache, the solver's batches, the
// pose integrator, and the ambient collaborators (dispatcher, metrics,
// logger) every Step call exercises.
type Simulation struct {
	ID uuid.UUID // identifies this scene/run across a multi-process host's logs and metrics

	cfg      config.Config
	store    *body.Store
	bp       *broadphase.Broadphase
	testers  *narrowphase.Registry
	allow    narrowphase.AllowFunc
	cache    *pairs.Cache
	sol      *solver.Solver
	integ    *integrate.Integrator
	disp     *dispatch.Dispatcher
	rec      *metrics.Recorder
	log      *slog.Logger
	scratch  *pool.Pool
	sleeping *sleep.Inactive

	shapes map[handle.Handle]Shape
}

// New creates a Simulation. testers is the host-supplied shape-pair
// dispatch table (this module never tests sphere-vs-box overlap itself);
// reg is where Prometheus instruments register, nil falling back to the
// default global registry; logger defaults to slog.Default() if nil.
func New(testers *narrowphase.Registry, reg prometheus.Registerer, logger *slog.Logger, opts ...config.Option) *Simulation {
	cfg := config.New(opts...)
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	solverParams := solver.DefaultParams()
	solverParams.Iterations = cfg.SolverIterations
	solverParams.MaximumRecoveryVelocity = cfg.MaximumRecovery

	integParams := integrate.DefaultParams()

	disp := dispatch.New()
	disp.Deterministic = cfg.Deterministic

	id := uuid.New()
	return &Simulation{
		ID:       id,
		cfg:      cfg,
		store:    body.NewStore(),
		bp:       broadphase.New(),
		testers:  testers,
		cache:    pairs.NewCache(),
		sol:      solver.New(solverParams),
		integ:    integrate.New(integParams),
		disp:     disp,
		rec:      metrics.New(reg),
		log:      logger.With("scene", id.String()),
		scratch:  pool.New(),
		sleeping: sleep.NewInactive(),
		shapes:   map[handle.Handle]Shape{},
	}
}

// Scratch returns the simulation's per-step scratch allocator: a slab
// pool a registered tester can Take/Return from to build a manifold's
// contact slice without an allocation the garbage collector has to chase
// down later. Shared across every tester call this step, so a tester must
// Return what it Takes before its own call returns.
func (s *Simulation) Scratch() *pool.Pool { return s.scratch }

// SetAllowFunc installs a collision filter consulted before narrowphase
// runs a tester for a candidate pair; nil (the default) allows every pair
// broadphase reports.
func (s *Simulation) SetAllowFunc(allow narrowphase.AllowFunc) { s.allow = allow }

// AddBody inserts a new dynamic body into the active set and the
// broadphase's active tree, keyed to shape for narrowphase dispatch and
// AABB prediction.
func (s *Simulation) AddBody(p body.Properties, shape Shape) handle.Handle {
	h := s.store.Add(p)
	s.shapes[h] = shape
	box := broadphase.AABB{Min: p.Position.Sub(shape.HalfExtent), Max: p.Position.Add(shape.HalfExtent)}
	s.bp.AddActive(h, box)
	return h
}

// AddStatic inserts a never-moving body (InverseMass/InverseInertia are
// expected to be zero, though AddStatic doesn't enforce it) into the
// broadphase's static tree. The body itself is stored in the body store's
// active set like any other, so the pose integrator visits it every step;
// gravity skips it (zero inverse mass) and its broadphase leaf stays in
// the static tree. There is no separate static body list.
func (s *Simulation) AddStatic(p body.Properties, shape Shape) handle.Handle {
	h := s.store.Add(p)
	s.shapes[h] = shape
	box := broadphase.AABB{Min: p.Position.Sub(shape.HalfExtent), Max: p.Position.Add(shape.HalfExtent)}
	s.bp.AddStatic(h, box)
	return h
}

// RemoveBody deletes h from the store, the broadphase, and any pair or
// constraint still referencing it.
func (s *Simulation) RemoveBody(h handle.Handle) {
	for _, p := range s.cache.Pairs() {
		if p.A == h || p.B == h {
			s.cache.Remove(p)
		}
	}
	s.cache.Flush(
		func(a, b handle.Handle, kind pairs.Kind) handle.Handle { return handle.Nil },
		func(ch handle.Handle) { s.sol.Remove(ch) },
		func(handle.Handle) bool { return false },
	)
	s.bp.Remove(h)
	s.store.Remove(h)
	delete(s.shapes, h)
}

// AddBallSocket pins a point on body a to a point on body b, added
// directly to the pair cache and solver rather than discovered through
// narrowphase — joints are host-declared, not geometry-derived. Must be
// called between Step calls, never concurrently with one, since it
// flushes the pair cache's queues immediately rather than deferring to
// the next Step's narrowphase pass.
func (s *Simulation) AddBallSocket(a, b handle.Handle, desc *solver.BallSocketDescription) {
	key := pairs.Make(a, b)
	s.cache.Update(key, pairs.KindBallSocket, a, b)
	s.cache.Flush(
		func(a, b handle.Handle, kind pairs.Kind) handle.Handle { return s.sol.Add(a, b, kind, desc) },
		func(ch handle.Handle) { s.sol.Remove(ch) },
		func(handle.Handle) bool { return false },
	)
}

// RemoveConstraint drops whatever constraint currently pairs a and b,
// contact or joint alike.
func (s *Simulation) RemoveConstraint(a, b handle.Handle) {
	key := pairs.Make(a, b)
	s.cache.Remove(key)
	s.cache.Flush(
		func(a, b handle.Handle, kind pairs.Kind) handle.Handle { return handle.Nil },
		func(ch handle.Handle) { s.sol.Remove(ch) },
		func(handle.Handle) bool { return false },
	)
}

// gravityCallback returns a VelocityCallback applying this Simulation's
// configured gravity, as an acceleration integrated over dt, to every
// non-kinematic body; used as the default forcing function Step passes
// to the pose integrator.
func (s *Simulation) gravityCallback(dt float32) integrate.VelocityCallback {
	dv := lin.V3(s.cfg.Gravity[0], s.cfg.Gravity[1], s.cfg.Gravity[2]).Scale(dt)
	return func(h handle.Handle, worker int, linear, angular *lin.Vec3) {
		if s.store.IsKinematic(h) {
			return
		}
		*linear = linear.Add(dv)
	}
}

func (s *Simulation) halfExtent(h handle.Handle) lin.Vec3 {
	return s.shapes[h].HalfExtent
}

// Step advances the simulation by dt seconds: narrowphase refreshes the
// pair cache and solver constraints for every broadphase candidate,
// Solve runs the batched sequential-impulse pass, the pose integrator
// advances position/orientation and predicts next-step AABBs, and any
// island that's been below the sleep threshold long enough is put to
// sleep.
func (s *Simulation) Step(ctx context.Context, dt float32) {
	if dt <= 0 {
		return
	}

	s.runNarrowphase()
	s.sol.SolveWith(ctx, s.disp, s.store, dt)
	s.rec.SolverIterations.Add(float64(s.sol.Params.Iterations))

	s.integ.Step(s.store, dt, s.gravityCallback(dt), s.halfExtent, 0, func(h handle.Handle, box broadphase.AABB) {
		s.bp.UpdateActive(h, box, lin.Zero3)
	})

	s.sleepIdleIslands()

	s.rec.ActiveBodies.Set(float64(s.store.SetLen(body.ActiveSet)))
	inactive := 0
	for setIdx := 1; setIdx < s.store.SetCount(); setIdx++ {
		inactive += s.store.SetLen(setIdx)
	}
	s.rec.InactiveBodies.Set(float64(inactive))
}

// runNarrowphase enumerates broadphase candidate pairs, dispatches each
// to a registered tester, and reconciles the resulting manifold (or its
// absence) into the pair cache and the solver. This runs sequentially —
// never through the dispatcher — because the pair cache's add/remove
// queues and the solver's batch assignment are not safe for concurrent
// mutation from multiple pairs at once.
func (s *Simulation) runNarrowphase() {
	pending := map[pairs.Pair]any{}

	s.bp.Overlaps(func(p broadphase.Pair) {
		sa, sb := s.shapes[p.A], s.shapes[p.B]
		np := narrowphase.Pair{A: p.A, B: p.B, KindA: sa.Kind, KindB: sb.Kind}
		key := pairs.Make(p.A, p.B)
		if e, ok := s.cache.Get(key); ok && e.Kind >= pairs.KindBallSocket {
			return // host-declared joint: narrowphase neither replaces nor drops it
		}
		m, ok := s.testers.Dispatch(0, np, s.allow)
		if !ok || len(m.Contacts) == 0 {
			s.cache.Remove(key)
			return
		}

		reduced := narrowphase.Reduce(m.Contacts)
		kind := pairs.ContactKind(m.Convex, len(reduced))
		if kind == pairs.KindNone {
			s.cache.Remove(key)
			return
		}

		prev, existed := s.cache.Get(key)
		var prevDesc *solver.ContactDescription
		if existed {
			if d, ok := s.sol.Data(prev.ConstraintHandle); ok {
				prevDesc, _ = d.(*solver.ContactDescription)
			}
		}
		desc := s.buildContactDescription(p.A, p.B, m, reduced, sa.Friction, sb.Friction, prevDesc)
		_, changed := s.cache.Update(key, kind, p.A, p.B)
		if changed {
			pending[key] = desc
		} else if existed {
			s.sol.SetData(prev.ConstraintHandle, desc)
		}
	})

	woken := s.cache.Flush(
		func(a, b handle.Handle, kind pairs.Kind) handle.Handle {
			desc, ok := pending[pairs.Make(a, b)]
			if !ok {
				desc = &solver.BallSocketDescription{}
			}
			return s.sol.Add(a, b, kind, desc)
		},
		func(ch handle.Handle) { s.sol.Remove(ch) },
		func(h handle.Handle) bool {
			setIdx, ok := s.store.SetOf(h)
			return ok && setIdx != body.ActiveSet
		},
	)
	for _, h := range woken {
		if setIdx, ok := s.store.SetOf(h); ok && setIdx != body.ActiveSet {
			sleep.Wake(s.store, s.bp, s.cache, s.sol, s.sleeping, setIdx)
		}
	}
}

// buildContactDescription assembles this step's prestep description for a
// contact manifold. prev is the constraint's prior-frame description, if
// the pair cache already carried one for this pair (nil for a brand-new
// contact) — its per-point Lambda is carried forward by matching Feature
// ids the same way narrowphase.WarmStart matches contacts, so a point that
// persists between frames keeps its accumulated impulse instead of
// restarting the solver's convergence from zero.
func (s *Simulation) buildContactDescription(a, b handle.Handle, m narrowphase.Manifold, reduced []narrowphase.Contact, frictionA, frictionB float32, prev *solver.ContactDescription) *solver.ContactDescription {
	posA, posB := s.store.Position(a), s.store.Position(b)
	normal := m.Normal
	if !m.Convex {
		var sum lin.Vec3
		for _, c := range reduced {
			sum = sum.Add(c.Normal)
		}
		normal = sum.Unit()
	}
	desc := &solver.ContactDescription{
		Convex:   m.Convex,
		Normal:   normal,
		Friction: combinedFriction(frictionA, frictionB),
		Points:   make([]solver.ContactPoint, len(reduced)),
	}
	for i, c := range reduced {
		worldPoint := posA.Add(c.OffsetA)
		desc.Points[i] = solver.ContactPoint{
			OffsetA: c.OffsetA,
			OffsetB: worldPoint.Sub(posB),
			Depth:   c.Depth,
			Feature: uint32(c.Feature),
			Normal:  c.Normal,
		}
	}
	if prev != nil {
		for i := range desc.Points {
			for _, op := range prev.Points {
				if op.Feature == desc.Points[i].Feature {
					desc.Points[i].Lambda = op.Lambda
					break
				}
			}
		}
		desc.LambdaTangent = prev.LambdaTangent
		desc.LambdaTwist = prev.LambdaTwist
	}
	return desc
}

// sleepIdleIslands finds every fully-idle connected component in the live
// pair graph and migrates it to a fresh inactive set.
func (s *Simulation) sleepIdleIslands() {
	for _, island := range sleep.FindSleepyIslands(s.store, s.cache) {
		s.log.Debug("island asleep", "bodies", len(island))
		sleep.Put(s.store, s.bp, s.cache, s.sol, s.sleeping, island)
	}
}

// Store exposes the underlying body store for read-only diagnostics and
// tests; mutation outside AddBody/AddStatic/RemoveBody/Step voids the
// pair cache's and solver's bookkeeping.
func (s *Simulation) Store() *body.Store { return s.store }

// Config returns the Simulation's resolved configuration.
func (s *Simulation) Config() config.Config { return s.cfg }

// Metrics exposes the Prometheus instruments Step updates every call, so
// a host application (or a registered tester using Scratch's pool) can
// record its own events against the same Recorder — e.g. PoolGrows when
// a tester's scratch allocation crosses into a new bucket.
func (s *Simulation) Metrics() *metrics.Recorder { return s.rec }
