// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package solver

import (
	"github.com/gazed/physx/body"
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

// BallSocketDescription pins a point on body A to a point on body B
// (three degrees of freedom removed), the simplest of the joint kinds:
// local offsets on each body plus an implicit-spring softness.
type BallSocketDescription struct {
	LocalOffsetA, LocalOffsetB lin.Vec3
	Spring                     Spring

	worldOffsetA, worldOffsetB lin.Vec3
	effMass                    lin.Mat3
	bias                       lin.Vec3
	Lambda                     lin.Vec3 // accumulated impulse, carried for warm starting
}

// PrestepBallSocket resolves local offsets into world space using each
// body's current orientation, and computes the 3x3 effective mass and
// bias velocity from the current positional error.
func PrestepBallSocket(s *body.Store, dt float32, params Params, a, b handle.Handle, d *BallSocketDescription) {
	oa, ob := s.Orientation(a), s.Orientation(b)
	d.worldOffsetA = oa.RotateVec3(d.LocalOffsetA)
	d.worldOffsetB = ob.RotateVec3(d.LocalOffsetB)

	pa := s.Position(a).Add(d.worldOffsetA)
	pb := s.Position(b).Add(d.worldOffsetB)
	errVec := pb.Sub(pa)

	invMassA, invMassB := s.InverseMass(a), s.InverseMass(b)
	invIA, invIB := s.InverseInertiaWorld(a), s.InverseInertiaWorld(b)

	k := skewK(invMassA, invIA, d.worldOffsetA).Add(skewK(invMassB, invIB, d.worldOffsetB))
	biasRate, softness := d.Spring.coefficients(dt)
	if d.Spring.NaturalFrequency <= 0 {
		biasRate = params.BaumgarteFactor / dt
	}
	k.Xx += softness
	k.Yy += softness
	k.Zz += softness
	d.effMass = k.Inverse()
	d.bias = errVec.Scale(biasRate)
}

// WarmStartBallSocket applies the accumulated impulse from the previous
// frame to both bodies.
func WarmStartBallSocket(s *body.Store, a, b handle.Handle, d *BallSocketDescription) {
	applyPointImpulse(s, a, b, d.worldOffsetA, d.worldOffsetB, d.Lambda)
}

// IterateBallSocket computes and applies one corrective impulse pass to
// drive the relative velocity at the pinned points toward -bias.
func IterateBallSocket(s *body.Store, a, b handle.Handle, d *BallSocketDescription) {
	lvA, avA := s.LinearVelocity(a), s.AngularVelocity(a)
	lvB, avB := s.LinearVelocity(b), s.AngularVelocity(b)
	relVel := lvB.Add(avB.Cross(d.worldOffsetB)).Sub(lvA.Add(avA.Cross(d.worldOffsetA)))
	dLambda := d.effMass.MulVec3(d.bias.Add(relVel).Neg())
	d.Lambda = d.Lambda.Add(dLambda)
	applyPointImpulse(s, a, b, d.worldOffsetA, d.worldOffsetB, dLambda)
}

func applyPointImpulse(s *body.Store, a, b handle.Handle, ra, rb lin.Vec3, impulse lin.Vec3) {
	invMassA, invMassB := s.InverseMass(a), s.InverseMass(b)
	invIA, invIB := s.InverseInertiaWorld(a), s.InverseInertiaWorld(b)
	lvA, avA := s.LinearVelocity(a), s.AngularVelocity(a)
	lvB, avB := s.LinearVelocity(b), s.AngularVelocity(b)

	lvA = lvA.Sub(impulse.Scale(invMassA))
	avA = avA.Sub(invIA.MulVec3(ra.Cross(impulse)))
	lvB = lvB.Add(impulse.Scale(invMassB))
	avB = avB.Add(invIB.MulVec3(rb.Cross(impulse)))

	s.SetLinearVelocity(a, lvA)
	s.SetAngularVelocity(a, avA)
	s.SetLinearVelocity(b, lvB)
	s.SetAngularVelocity(b, avB)
}

// skewK returns invMass·I + [r]×ᵀ·invI·[r]×, the rotational contribution
// a point constraint at offset r makes to the combined effective mass,
// where [r]× is the cross-product (skew-symmetric) matrix of r.
func skewK(invMass float32, invI lin.Mat3, r lin.Vec3) lin.Mat3 {
	skew := lin.Mat3{
		Xx: 0, Xy: -r.Z, Xz: r.Y,
		Yx: r.Z, Yy: 0, Yz: -r.X,
		Zx: -r.Y, Zy: r.X, Zz: 0,
	}
	rot := skew.Mult(invI).Mult(skew.Transpose())
	return lin.Mat3{
		Xx: invMass + rot.Xx, Xy: rot.Xy, Xz: rot.Xz,
		Yx: rot.Yx, Yy: invMass + rot.Yy, Yz: rot.Yz,
		Zx: rot.Zx, Zy: rot.Zy, Zz: invMass + rot.Zz,
	}
}
