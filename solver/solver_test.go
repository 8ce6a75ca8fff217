package solver

import (
	"testing"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
	"github.com/gazed/physx/pairs"
)

func sphere(st *body.Store, pos lin.Vec3, invMass float32) handle.Handle {
	i := float32(0)
	if invMass != 0 {
		i = invMass * 2.5 // solid sphere inverse inertia approximation, r=1
	}
	return st.Add(body.Properties{
		Position:       pos,
		Orientation:    lin.QuatI,
		InverseMass:    invMass,
		InverseInertia: lin.Sym3{Xx: i, Yy: i, Zz: i},
	})
}

func TestAddPlacesDisjointConstraintsInSameBatch(t *testing.T) {
	s := New(DefaultParams())
	a, b, c, d := handle.Handle(1), handle.Handle(2), handle.Handle(3), handle.Handle(4)
	s.Add(a, b, pairs.KindBallSocket, &BallSocketDescription{})
	s.Add(c, d, pairs.KindBallSocket, &BallSocketDescription{})
	if s.BatchCount() != 1 {
		t.Fatalf("expected 1 batch for disjoint constraints, got %d", s.BatchCount())
	}
}

func TestAddSplitsOverlappingConstraintsIntoNewBatch(t *testing.T) {
	s := New(DefaultParams())
	a, b, c := handle.Handle(1), handle.Handle(2), handle.Handle(3)
	s.Add(a, b, pairs.KindBallSocket, &BallSocketDescription{})
	s.Add(b, c, pairs.KindBallSocket, &BallSocketDescription{})
	if s.BatchCount() != 2 {
		t.Fatalf("expected 2 batches for constraints sharing body b, got %d", s.BatchCount())
	}
}

func TestRemovePreservesOtherConstraintLocations(t *testing.T) {
	s := New(DefaultParams())
	a, b := handle.Handle(1), handle.Handle(2)
	c, d := handle.Handle(3), handle.Handle(4)
	e, f := handle.Handle(5), handle.Handle(6)

	h1 := s.Add(a, b, pairs.KindBallSocket, &BallSocketDescription{})
	h2 := s.Add(c, d, pairs.KindBallSocket, &BallSocketDescription{})
	h3 := s.Add(e, f, pairs.KindBallSocket, &BallSocketDescription{})

	s.Remove(h1)

	if _, ok := s.Location(h1); ok {
		t.Fatalf("removed constraint h1 should no longer resolve")
	}
	if _, ok := s.Location(h2); !ok {
		t.Fatalf("h2 should still resolve after removing h1")
	}
	if _, ok := s.Location(h3); !ok {
		t.Fatalf("h3 should still resolve after removing h1")
	}
}

func TestRemoveReturningReportsKindBodiesAndData(t *testing.T) {
	s := New(DefaultParams())
	a, b := handle.Handle(1), handle.Handle(2)
	d := &BallSocketDescription{LocalOffsetA: lin.V3(1, 0, 0)}
	h := s.Add(a, b, pairs.KindBallSocket, d)

	kind, ra, rb, data, ok := s.RemoveReturning(h)
	if !ok {
		t.Fatalf("expected RemoveReturning to find the live constraint")
	}
	if kind != pairs.KindBallSocket || ra != a || rb != b {
		t.Fatalf("expected kind=%v a=%v b=%v, got kind=%v a=%v b=%v", pairs.KindBallSocket, a, b, kind, ra, rb)
	}
	if data.(*BallSocketDescription) != d {
		t.Fatalf("expected the exact description pointer back, not a copy")
	}
	if _, ok := s.Location(h); ok {
		t.Fatalf("expected the constraint to no longer resolve after RemoveReturning")
	}
}

func TestBatchDisjointnessInvariantHoldsAfterChurn(t *testing.T) {
	s := New(DefaultParams())
	var live []handle.Handle
	next := handle.Handle(1)
	for i := 0; i < 20; i++ {
		a, b := next, next+1
		next += 2
		live = append(live, s.Add(a, b, pairs.KindBallSocket, &BallSocketDescription{}))
		if i%3 == 0 && len(live) > 1 {
			s.Remove(live[0])
			live = live[1:]
		}
	}
	if err := s.batchDisjointnessHolds(); err != nil {
		t.Fatalf("disjointness invariant violated: %v", err)
	}
}

func TestKinematicBodyNeverGainsVelocityFromBallSocket(t *testing.T) {
	st := body.NewStore()
	a := sphere(st, lin.V3(0, 0, 0), 0) // kinematic
	b := sphere(st, lin.V3(0, 2, 0), 1)

	s := New(DefaultParams())
	d := &BallSocketDescription{LocalOffsetA: lin.V3(0, 1, 0), LocalOffsetB: lin.V3(0, -1, 0)}
	h := s.Add(a, b, pairs.KindBallSocket, d)
	_ = h

	for i := 0; i < 8; i++ {
		s.Solve(st, 1.0/60.0)
	}

	if !st.LinearVelocity(a).Eq(lin.Zero3) {
		t.Fatalf("kinematic body gained linear velocity: %v", st.LinearVelocity(a))
	}
	if !st.AngularVelocity(a).Eq(lin.Zero3) {
		t.Fatalf("kinematic body gained angular velocity: %v", st.AngularVelocity(a))
	}
}

func TestBallSocketPullsPointsTogether(t *testing.T) {
	st := body.NewStore()
	a := sphere(st, lin.V3(0, 0, 0), 1)
	b := sphere(st, lin.V3(0, 3, 0), 1)

	s := New(DefaultParams())
	d := &BallSocketDescription{}
	s.Add(a, b, pairs.KindBallSocket, d)

	dt := float32(1.0 / 60.0)
	for i := 0; i < 120; i++ {
		for _, bt := range s.batches {
			for kind, tb := range bt.typeBatches {
				if kind == pairs.KindBallSocket {
					prestepBallSockets(st, dt, s.Params, tb)
					warmStartBallSockets(st, tb)
					for k := 0; k < s.Params.Iterations; k++ {
						iterateBallSockets(st, tb)
					}
				}
			}
		}
		pa := st.Position(a).Add(st.LinearVelocity(a).Scale(dt))
		pb := st.Position(b).Add(st.LinearVelocity(b).Scale(dt))
		st.SetPosition(a, pa)
		st.SetPosition(b, pb)
	}

	gap := st.Position(b).Sub(st.Position(a)).Len()
	if gap > 0.5 {
		t.Fatalf("ball socket failed to pull points together, residual gap %v", gap)
	}
}

func TestContactNormalImpulseResolvesApproachingVelocity(t *testing.T) {
	st := body.NewStore()
	a := sphere(st, lin.V3(0, 0, 0), 1)
	b := sphere(st, lin.V3(0, 2, 0), 1)
	st.SetLinearVelocity(b, lin.V3(0, -5, 0))

	d := &ContactDescription{
		Normal: lin.V3(0, 1, 0),
		Points: []ContactPoint{{
			OffsetA: lin.V3(0, 1, 0),
			OffsetB: lin.V3(0, -1, 0),
			Depth:   0,
		}},
		Friction: 0.5,
	}

	s := New(DefaultParams())
	s.Add(a, b, pairs.KindContactConvex1, d)
	s.Solve(st, 1.0/60.0)

	relVel := st.LinearVelocity(b).Sub(st.LinearVelocity(a)).Dot(lin.V3(0, 1, 0))
	if relVel < -0.01 {
		t.Fatalf("bodies still approaching after solve: relative normal velocity %v", relVel)
	}
}

func TestWarmStartCarriesAccumulatedImpulseAcrossSteps(t *testing.T) {
	st := body.NewStore()
	a := sphere(st, lin.V3(0, 0, 0), 0)
	b := sphere(st, lin.V3(0, 1.9, 0), 1)

	d := &ContactDescription{
		Normal: lin.V3(0, 1, 0),
		Points: []ContactPoint{{
			OffsetA: lin.V3(0, 1, 0),
			OffsetB: lin.V3(0, -1, 0),
			Depth:   0.1,
		}},
		Friction: 0.5,
	}

	s := New(DefaultParams())
	s.Add(a, b, pairs.KindContactConvex1, d)

	s.Solve(st, 1.0/60.0)
	firstLambda := d.Points[0].Lambda
	if firstLambda <= 0 {
		t.Fatalf("expected positive accumulated normal impulse resolving penetration, got %v", firstLambda)
	}

	s.Solve(st, 1.0/60.0)
	if d.Points[0].Lambda <= 0 {
		t.Fatalf("warm-started impulse should remain non-negative across steps, got %v", d.Points[0].Lambda)
	}
}
