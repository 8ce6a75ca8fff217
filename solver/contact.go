// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package solver

import (
	"github.com/gazed/physx/body"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

// ContactPoint is one point of a convex contact manifold's solver state:
// the geometry narrowphase produced, plus the running effective mass and
// accumulated normal impulse the solver maintains across iterations.
type ContactPoint struct {
	OffsetA, OffsetB lin.Vec3 // world-space offset from each body's center of mass
	Depth            float32
	Feature          uint32

	// Normal overrides ContactDescription.Normal for this point alone. Zero
	// (the Vec3 zero value) means "use the shared normal" — every point of
	// a convex manifold leaves this unset.
	Normal lin.Vec3

	normalMass float32
	bias       float32
	rAxN, rBxN lin.Vec3
	Lambda     float32 // accumulated normal impulse; carried across frames for warm starting
}

// ContactDescription is the prestep/running state for one contact
// constraint. A convex manifold shares one Normal across every Point, the
// common case (KindContactConvex1..4, 1..4 points). A non-convex manifold
// (KindContactNonConvex2..8) gives each Point its own Normal instead — set
// Convex false and each Point's own Normal field; Normal itself still holds
// the manifold's average normal direction, used as the friction/twist
// reference axis since a single combined friction basis per constraint is
// a standard approximation regardless of how many distinct face normals
// contribute to it.
type ContactDescription struct {
	Convex   bool
	Normal   lin.Vec3
	Points   []ContactPoint
	Friction float32
	Spring   Spring // zero value means rigid (Baumgarte-only) contact

	tangent1, tangent2 lin.Vec3
	tangentMass        [2]float32
	twistMass          float32
	LambdaTangent      [2]float32
	LambdaTwist        float32
}

// normalFor returns the normal direction the solver should use for point i:
// the point's own override if Convex is false and it has one set, otherwise
// the manifold's shared Normal.
func (d *ContactDescription) normalFor(i int) lin.Vec3 {
	if !d.Convex && d.Points[i].Normal != (lin.Vec3{}) {
		return d.Points[i].Normal
	}
	return d.Normal
}

// PrestepContact computes Jacobian-derived quantities (effective mass,
// bias velocity, friction basis) for a contact constraint ahead of warm
// starting and iteration. Must be called once per step before WarmStart/
// IterateContact.
func PrestepContact(s *body.Store, dt float32, params Params, a, b handle.Handle, d *ContactDescription) {
	invMassA, invMassB := s.InverseMass(a), s.InverseMass(b)
	invIA, invIB := s.InverseInertiaWorld(a), s.InverseInertiaWorld(b)

	for i := range d.Points {
		p := &d.Points[i]
		n := d.normalFor(i)
		rAxN := p.OffsetA.Cross(n)
		rBxN := p.OffsetB.Cross(n)
		angA := invIA.MulVec3(rAxN).Dot(rAxN)
		angB := invIB.MulVec3(rBxN).Dot(rBxN)
		k := invMassA + invMassB + angA + angB

		biasRate, softness := d.Spring.coefficients(dt)
		if d.Spring.NaturalFrequency <= 0 {
			biasRate = params.BaumgarteFactor / dt
		}
		denom := k + softness
		if denom > 1e-9 {
			p.normalMass = 1 / denom
		} else {
			p.normalMass = 0
		}
		p.rAxN, p.rBxN = rAxN, rBxN

		penetration := p.Depth
		if penetration < 0 {
			penetration = 0
		}
		bias := biasRate * penetration
		if bias > params.MaximumRecoveryVelocity {
			bias = params.MaximumRecoveryVelocity
		}
		p.bias = bias
	}

	d.tangent1, d.tangent2 = tangentBasis(d.Normal)
	centroid := centroidOffsetA(d.Points)
	centroidB := centroidOffsetB(d.Points)
	for dir, t := range [2]lin.Vec3{d.tangent1, d.tangent2} {
		rAxT := centroid.Cross(t)
		rBxT := centroidB.Cross(t)
		angA := invIA.MulVec3(rAxT).Dot(rAxT)
		angB := invIB.MulVec3(rBxT).Dot(rBxT)
		k := invMassA + invMassB + angA + angB
		if k > 1e-9 {
			d.tangentMass[dir] = 1 / k
		}
	}
	twistK := invIA.MulVec3(d.Normal).Dot(d.Normal) + invIB.MulVec3(d.Normal).Dot(d.Normal)
	if twistK > 1e-9 {
		d.twistMass = 1 / twistK
	}
}

// WarmStartContact applies the previous frame's accumulated impulses
// (normal per point, combined friction, twist) to body velocities before
// the first iteration.
func WarmStartContact(s *body.Store, a, b handle.Handle, d *ContactDescription) {
	invMassA, invMassB := s.InverseMass(a), s.InverseMass(b)
	invIA, invIB := s.InverseInertiaWorld(a), s.InverseInertiaWorld(b)
	lvA, avA := s.LinearVelocity(a), s.AngularVelocity(a)
	lvB, avB := s.LinearVelocity(b), s.AngularVelocity(b)

	for i, p := range d.Points {
		impulse := d.normalFor(i).Scale(p.Lambda)
		lvA = lvA.Sub(impulse.Scale(invMassA))
		avA = avA.Sub(invIA.MulVec3(p.rAxN).Scale(p.Lambda))
		lvB = lvB.Add(impulse.Scale(invMassB))
		avB = avB.Add(invIB.MulVec3(p.rBxN).Scale(p.Lambda))
	}
	for dir, t := range [2]lin.Vec3{d.tangent1, d.tangent2} {
		impulse := t.Scale(d.LambdaTangent[dir])
		lvA = lvA.Sub(impulse.Scale(invMassA))
		lvB = lvB.Add(impulse.Scale(invMassB))
	}
	twist := d.Normal.Scale(d.LambdaTwist)
	avA = avA.Sub(invIA.MulVec3(twist))
	avB = avB.Add(invIB.MulVec3(twist))

	s.SetLinearVelocity(a, lvA)
	s.SetAngularVelocity(a, avA)
	s.SetLinearVelocity(b, lvB)
	s.SetAngularVelocity(b, avB)
}

// IterateContact runs one sequential-impulse pass: normal impulses first
// (clamped to λ ≥ 0), then the combined friction impulse (clamped to a
// cone bounded by the summed normal impulses times the friction
// coefficient), then twist friction (bounded the same way).
func IterateContact(s *body.Store, a, b handle.Handle, d *ContactDescription) {
	invMassA, invMassB := s.InverseMass(a), s.InverseMass(b)
	invIA, invIB := s.InverseInertiaWorld(a), s.InverseInertiaWorld(b)
	lvA, avA := s.LinearVelocity(a), s.AngularVelocity(a)
	lvB, avB := s.LinearVelocity(b), s.AngularVelocity(b)

	for i := range d.Points {
		p := &d.Points[i]
		n := d.normalFor(i)
		relVel := lvB.Add(avB.Cross(p.OffsetB)).Sub(lvA.Add(avA.Cross(p.OffsetA)))
		jv := relVel.Dot(n)
		dLambda := p.normalMass * (p.bias - jv)
		newLambda := p.Lambda + dLambda
		if newLambda < 0 {
			newLambda = 0
		}
		dLambda = newLambda - p.Lambda
		p.Lambda = newLambda

		impulse := n.Scale(dLambda)
		lvA = lvA.Sub(impulse.Scale(invMassA))
		avA = avA.Sub(invIA.MulVec3(p.rAxN).Scale(dLambda))
		lvB = lvB.Add(impulse.Scale(invMassB))
		avB = avB.Add(invIB.MulVec3(p.rBxN).Scale(dLambda))
	}

	var normalSum float32
	for _, p := range d.Points {
		normalSum += p.Lambda
	}
	maxFriction := d.Friction * normalSum
	centroidA := centroidOffsetA(d.Points)
	centroidB := centroidOffsetB(d.Points)

	for dir, t := range [2]lin.Vec3{d.tangent1, d.tangent2} {
		relVel := lvB.Add(avB.Cross(centroidB)).Sub(lvA.Add(avA.Cross(centroidA)))
		jv := relVel.Dot(t)
		dLambda := -d.tangentMass[dir] * jv
		newLambda := clampAbs(d.LambdaTangent[dir]+dLambda, maxFriction)
		dLambda = newLambda - d.LambdaTangent[dir]
		d.LambdaTangent[dir] = newLambda

		impulse := t.Scale(dLambda)
		lvA = lvA.Sub(impulse.Scale(invMassA))
		lvB = lvB.Add(impulse.Scale(invMassB))
	}

	relAV := avB.Sub(avA)
	jvTwist := relAV.Dot(d.Normal)
	dTwist := -d.twistMass * jvTwist
	newTwist := clampAbs(d.LambdaTwist+dTwist, maxFriction)
	dTwist = newTwist - d.LambdaTwist
	d.LambdaTwist = newTwist
	twistImpulse := d.Normal.Scale(dTwist)
	avA = avA.Sub(invIA.MulVec3(twistImpulse))
	avB = avB.Add(invIB.MulVec3(twistImpulse))

	s.SetLinearVelocity(a, lvA)
	s.SetAngularVelocity(a, avA)
	s.SetLinearVelocity(b, lvB)
	s.SetAngularVelocity(b, avB)
}

func clampAbs(v, limit float32) float32 {
	if limit < 0 {
		limit = 0
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func centroidOffsetA(points []ContactPoint) lin.Vec3 {
	var sum lin.Vec3
	for _, p := range points {
		sum = sum.Add(p.OffsetA)
	}
	if len(points) == 0 {
		return sum
	}
	return sum.Scale(1 / float32(len(points)))
}

func centroidOffsetB(points []ContactPoint) lin.Vec3 {
	var sum lin.Vec3
	for _, p := range points {
		sum = sum.Add(p.OffsetB)
	}
	if len(points) == 0 {
		return sum
	}
	return sum.Scale(1 / float32(len(points)))
}

// tangentBasis builds an arbitrary orthonormal pair perpendicular to n,
// used as the two friction directions.
func tangentBasis(n lin.Vec3) (t1, t2 lin.Vec3) {
	ref := lin.V3(1, 0, 0)
	if n.X > 0.9 || n.X < -0.9 {
		ref = lin.V3(0, 1, 0)
	}
	t1 = ref.Cross(n).Unit()
	t2 = n.Cross(t1)
	return t1, t2
}
