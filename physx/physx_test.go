// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physx

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/config"
	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/narrowphase"
	"github.com/gazed/physx/pairs"
	"github.com/gazed/physx/solver"
)

const shapeSphere narrowphase.ShapeKind = 1

func dynamicSphere(pos lin.Vec3) body.Properties {
	return body.Properties{
		Position:       pos,
		Orientation:    lin.QuatI,
		InverseMass:    1,
		InverseInertia: lin.Sym3{Xx: 2.5, Yy: 2.5, Zz: 2.5},
	}
}

func staticSphere(pos lin.Vec3) body.Properties {
	return body.Properties{Position: pos, Orientation: lin.QuatI}
}

func newTestSim(opts ...config.Option) *Simulation {
	reg := narrowphase.NewRegistry()
	reg.Register(shapeSphere, shapeSphere, func(worker int, pair narrowphase.Pair) (narrowphase.Manifold, bool) {
		return narrowphase.Manifold{}, false
	})
	return New(reg, prometheus.NewRegistry(), nil, append([]config.Option{config.Deterministic()}, opts...)...)
}

// registerOverlapTester rewires the sphere-sphere tester to always report
// one head-on contact along +Y with the given penetration depth, standing
// in for real sphere-vs-sphere geometry a host application would supply.
func registerOverlapTester(sim *Simulation, radius, depth float32) {
	sim.testers = narrowphase.NewRegistry()
	sim.testers.Register(shapeSphere, shapeSphere, func(worker int, pair narrowphase.Pair) (narrowphase.Manifold, bool) {
		return narrowphase.Manifold{
			Convex: true,
			Normal: lin.V3(0, 1, 0),
			Contacts: []narrowphase.Contact{
				{OffsetA: lin.V3(0, radius, 0), Depth: depth, Feature: 1},
			},
		}, true
	})
}

func TestAddBodyPlacesHandleInActiveSet(t *testing.T) {
	sim := newTestSim()
	h := sim.AddBody(dynamicSphere(lin.V3(0, 5, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1), Friction: 0.5})
	if setIdx, ok := sim.Store().SetOf(h); !ok || setIdx != body.ActiveSet {
		t.Fatalf("expected new body in ActiveSet, got set=%d ok=%v", setIdx, ok)
	}
}

func TestStepIntegratesFreeFallUnderGravity(t *testing.T) {
	sim := newTestSim()
	h := sim.AddBody(dynamicSphere(lin.V3(0, 10, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})

	start := sim.Store().Position(h).Y
	// Pose advances with the velocity held at the start of a step and
	// gravity is applied after it, so a body at rest first moves on step 2.
	for i := 0; i < 2; i++ {
		sim.Step(context.Background(), 1.0/60.0)
	}
	got := sim.Store().Position(h).Y

	if got >= start {
		t.Fatalf("expected body to fall under gravity: start=%v got=%v", start, got)
	}
}

func TestStepResolvesContactBetweenOverlappingSpheres(t *testing.T) {
	sim := newTestSim()
	a := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	sim.AddStatic(staticSphere(lin.V3(0, 1.9, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	registerOverlapTester(sim, 1, 0.1)

	sim.Step(context.Background(), 1.0/60.0)

	// The contact's +Y normal points from a toward the static sphere above
	// it, so resolving the overlap must never send a upward into it.
	if got := sim.Store().LinearVelocity(a).Y; got > 0.01 {
		t.Errorf("expected contact to resolve approaching velocity, got linear velocity Y=%v", got)
	}
}

func TestRemoveBodyDropsItsConstraintsToo(t *testing.T) {
	sim := newTestSim()
	a := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	b := sim.AddBody(dynamicSphere(lin.V3(1, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	sim.AddBallSocket(a, b, &solver.BallSocketDescription{
		LocalOffsetA: lin.V3(0.5, 0, 0),
		LocalOffsetB: lin.V3(-0.5, 0, 0),
	})

	sim.RemoveBody(a)

	if sim.Store().Contains(a) {
		t.Fatalf("expected removed body to be gone from the store")
	}
	if len(sim.cache.Pairs()) != 0 {
		t.Errorf("expected the ball socket's pair entry to be dropped with body a, got %d pairs", len(sim.cache.Pairs()))
	}
}

func TestAddBallSocketAddsOneConstraintPair(t *testing.T) {
	sim := newTestSim()
	a := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	b := sim.AddBody(dynamicSphere(lin.V3(1, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	sim.AddBallSocket(a, b, &solver.BallSocketDescription{
		LocalOffsetA: lin.V3(0.5, 0, 0),
		LocalOffsetB: lin.V3(-0.5, 0, 0),
	})

	if len(sim.cache.Pairs()) != 1 {
		t.Fatalf("expected exactly one pair after AddBallSocket, got %d", len(sim.cache.Pairs()))
	}

	sim.RemoveConstraint(a, b)
	if len(sim.cache.Pairs()) != 0 {
		t.Errorf("expected RemoveConstraint to drop the pair, got %d remaining", len(sim.cache.Pairs()))
	}
}

func TestStepPutsIdleIslandToSleep(t *testing.T) {
	sim := newTestSim(config.Gravity(0, 0, 0))
	h := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})

	for i := 0; i < 40; i++ {
		sim.Step(context.Background(), 1.0/60.0)
	}

	if setIdx, ok := sim.Store().SetOf(h); !ok || setIdx == body.ActiveSet {
		t.Errorf("expected idle body to have migrated out of the active set, got set=%d ok=%v", setIdx, ok)
	}
}

func TestStepMigratesSleepingIslandsConstraintOutOfSolver(t *testing.T) {
	sim := newTestSim(config.Gravity(0, 0, 0))
	a := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	b := sim.AddBody(dynamicSphere(lin.V3(1, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	// Offsets already line up at rest (a's pinned point and b's pinned point
	// both land on (0.5,0,0)), so the joint applies no bias and both bodies
	// stay still long enough to become sleep candidates.
	sim.AddBallSocket(a, b, &solver.BallSocketDescription{
		LocalOffsetA: lin.V3(0.5, 0, 0),
		LocalOffsetB: lin.V3(-0.5, 0, 0),
	})

	entry, ok := sim.cache.Get(pairs.Make(a, b))
	if !ok {
		t.Fatalf("expected a pair cache entry for the ball socket")
	}
	if _, ok := sim.sol.Location(entry.ConstraintHandle); !ok {
		t.Fatalf("expected the constraint to be live in the solver before any body sleeps")
	}

	for i := 0; i < 40; i++ {
		sim.Step(context.Background(), 1.0/60.0)
	}

	aSet, _ := sim.Store().SetOf(a)
	bSet, _ := sim.Store().SetOf(b)
	if aSet == body.ActiveSet || bSet == body.ActiveSet {
		t.Fatalf("expected both bodies of the still island to be asleep, got a=%d b=%d", aSet, bSet)
	}

	if _, ok := sim.sol.Location(entry.ConstraintHandle); ok {
		t.Errorf("expected the sleeping island's constraint to be migrated out of the active solver")
	}
	if got := len(sim.cache.Pairs()); got != 1 {
		t.Errorf("expected the pair cache entry to survive the island going to sleep, got %d pairs", got)
	}
}

func TestBuildContactDescriptionCarriesLambdaByMatchingFeature(t *testing.T) {
	sim := newTestSim()
	a := sim.AddBody(dynamicSphere(lin.V3(0, 0, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	b := sim.AddBody(dynamicSphere(lin.V3(0, 1.9, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})

	m := narrowphase.Manifold{
		Convex: true,
		Normal: lin.V3(0, 1, 0),
		Contacts: []narrowphase.Contact{
			{OffsetA: lin.V3(0, 1, 0), Depth: 0.1, Feature: 1},
		},
	}
	reduced := narrowphase.Reduce(m.Contacts)

	prev := &solver.ContactDescription{
		Points:        []solver.ContactPoint{{Feature: 1, Lambda: 5}},
		LambdaTangent: [2]float32{0.25, -0.25},
		LambdaTwist:   0.5,
	}

	fresh := sim.buildContactDescription(a, b, m, reduced, 0, 0, nil)
	if fresh.Points[0].Lambda != 0 {
		t.Fatalf("expected a brand-new contact to start at zero impulse, got %v", fresh.Points[0].Lambda)
	}

	warm := sim.buildContactDescription(a, b, m, reduced, 0, 0, prev)
	if warm.Points[0].Lambda != 5 {
		t.Errorf("expected the matching-feature point to inherit prev Lambda=5, got %v", warm.Points[0].Lambda)
	}
	if warm.LambdaTangent != prev.LambdaTangent {
		t.Errorf("expected LambdaTangent to carry over, got %v want %v", warm.LambdaTangent, prev.LambdaTangent)
	}
	if warm.LambdaTwist != prev.LambdaTwist {
		t.Errorf("expected LambdaTwist to carry over, got %v want %v", warm.LambdaTwist, prev.LambdaTwist)
	}
}

func TestMetricsTrackActiveBodyCount(t *testing.T) {
	sim := newTestSim()
	sim.AddBody(dynamicSphere(lin.V3(0, 5, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})
	sim.AddBody(dynamicSphere(lin.V3(5, 5, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})

	sim.Step(context.Background(), 1.0/60.0)

	if sim.Metrics() == nil {
		t.Fatalf("expected a non-nil metrics recorder")
	}
}

func TestScratchReturnsUsablePool(t *testing.T) {
	sim := newTestSim()
	if sim.Scratch() == nil {
		t.Fatalf("expected a non-nil scratch pool")
	}
}

func TestStepIgnoresNonPositiveDt(t *testing.T) {
	sim := newTestSim()
	h := sim.AddBody(dynamicSphere(lin.V3(0, 5, 0)), Shape{Kind: shapeSphere, HalfExtent: lin.V3(1, 1, 1)})

	before := sim.Store().Position(h)
	sim.Step(context.Background(), 0)
	after := sim.Store().Position(h)

	if before != after {
		t.Errorf("expected a zero dt Step to be a no-op, position moved from %v to %v", before, after)
	}
}
