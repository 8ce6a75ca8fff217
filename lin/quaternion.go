// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// Quat is a unit-length quaternion representing an orientation.
// For a nice explanation of quaternions see http://3dgep.com/?p=1815
type Quat struct {
	X, Y, Z, W float32
}

// QuatI is the identity orientation. Treat as read-only.
var QuatI = Quat{0, 0, 0, 1}

// Eq (==) returns true if every element matches exactly.
func (q Quat) Eq(r Quat) bool { return q.X == r.X && q.Y == r.Y && q.Z == r.Z && q.W == r.W }

// Aeq (~=) returns true if every element is within Epsilon of r's.
func (q Quat) Aeq(r Quat) bool {
	return aeq(q.X, r.X) && aeq(q.Y, r.Y) && aeq(q.Z, r.Z) && aeq(q.W, r.W)
}

// Conjugate returns the conjugate of q: negate the vector part.
// Equal to the inverse as long as q is unit length.
func (q Quat) Conjugate() Quat { return Quat{-q.X, -q.Y, -q.Z, q.W} }

// Mult returns q*r: the rotation of r followed by q (Hamilton product).
func (q Quat) Mult(r Quat) Quat {
	return Quat{
		q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Dot returns the dot product of q and r.
func (q Quat) Dot(r Quat) float32 { return q.X*r.X + q.Y*r.Y + q.Z*r.Z + q.W*r.W }

// Len returns the length of q.
func (q Quat) Len() float32 { return float32(math.Sqrt(float64(q.Dot(q)))) }

// Unit normalizes q to length 1. The quaternion is returned unchanged
// if its length is (numerically) zero.
func (q Quat) Unit() Quat {
	l := q.Len()
	if l < Epsilon {
		return q
	}
	inv := 1 / l
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// RotateVec3 rotates v by the orientation q.
func (q Quat) RotateVec3(v Vec3) Vec3 {
	qv := Vec3{q.X, q.Y, q.Z}
	uv := qv.Cross(v)
	uuv := qv.Cross(uv)
	return v.Add(uv.Scale(2 * q.W)).Add(uuv.Scale(2))
}

// Mat3 returns the 3x3 rotation matrix equivalent to q. q is assumed unit.
func (q Quat) Mat3() Mat3 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	x2, y2, z2 := x+x, y+y, z+z
	xx, yy, zz := x*x2, y*y2, z*z2
	xy, xz, yz := x*y2, x*z2, y*z2
	wx, wy, wz := w*x2, w*y2, w*z2
	return Mat3{
		Xx: 1 - (yy + zz), Xy: xy - wz, Xz: xz + wy,
		Yx: xy + wz, Yy: 1 - (xx + zz), Yz: yz - wx,
		Zx: xz - wy, Zy: yz + wx, Zz: 1 - (xx + yy),
	}
}

// FromAxisAngle builds a unit quaternion rotating by angle radians about
// a (expected unit-length) axis.
func FromAxisAngle(axis Vec3, angle float32) Quat {
	half := angle * 0.5
	s := float32(math.Sin(float64(half)))
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, float32(math.Cos(float64(half)))}
}

// IntegrateAngularVelocity advances orientation q by angular velocity omega
// over dt, using the closed-form exponential-map update the pose integrator
// applies once per active body per step: for small or zero angular velocity
// the orientation is left unchanged exactly, avoiding a spurious
// renormalization that would perturb a resting body's orientation.
//
// avEpsilon is the minimum angular speed (rad/s) below which the rotation
// is treated as zero, so that zero angular velocity leaves orientation
// bit-exact.
func (q Quat) IntegrateAngularVelocity(omega Vec3, dt float32, avEpsilon float32) Quat {
	speed := omega.Len()
	if speed <= avEpsilon {
		return q
	}
	halfAngle := speed * dt * 0.5
	s := float32(math.Sin(float64(halfAngle))) / speed
	dq := Quat{omega.X * s, omega.Y * s, omega.Z * s, float32(math.Cos(float64(halfAngle)))}
	return q.Mult(dq).Unit()
}
