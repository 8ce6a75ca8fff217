// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package lin provides the vector, quaternion, and matrix math needed by
// the simulation core. Types are single-precision (float32) to match the
// data model's pose and velocity representation. Methods take value
// receivers and return a new value (v.Add(w) leaves v unchanged), so
// calls chain without heap allocation on the hot path.
package lin

import "math"

// Epsilon is the default tolerance used by Aeq (almost-equal) comparisons.
const Epsilon = 1e-6

// Vec3 is a 3 element vector, used for positions, velocities, and forces.
type Vec3 struct {
	X, Y, Z float32
}

// Zero3 is the zero vector. Treat as read-only.
var Zero3 = Vec3{0, 0, 0}

// V3 is a convenience constructor.
func V3(x, y, z float32) Vec3 { return Vec3{x, y, z} }

// Eq (==) returns true if every element matches exactly.
func (v Vec3) Eq(a Vec3) bool { return v.X == a.X && v.Y == a.Y && v.Z == a.Z }

// Aeq (~=) returns true if every element is within Epsilon of a's.
func (v Vec3) Aeq(a Vec3) bool {
	return aeq(v.X, a.X) && aeq(v.Y, a.Y) && aeq(v.Z, a.Z)
}

func aeq(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < Epsilon
}

// Add (+) returns v+a.
func (v Vec3) Add(a Vec3) Vec3 { return Vec3{v.X + a.X, v.Y + a.Y, v.Z + a.Z} }

// Sub (-) returns v-a.
func (v Vec3) Sub(a Vec3) Vec3 { return Vec3{v.X - a.X, v.Y - a.Y, v.Z - a.Z} }

// Neg returns -v.
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Scale (*) returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and a.
func (v Vec3) Dot(a Vec3) float32 { return v.X*a.X + v.Y*a.Y + v.Z*a.Z }

// Cross returns v × a.
func (v Vec3) Cross(a Vec3) Vec3 {
	return Vec3{
		v.Y*a.Z - v.Z*a.Y,
		v.Z*a.X - v.X*a.Z,
		v.X*a.Y - v.Y*a.X,
	}
}

// LenSq returns the squared length of v. Prefer this over Len when only
// comparing magnitudes — avoids a sqrt on a per-body, per-step hot path.
func (v Vec3) LenSq() float32 { return v.Dot(v) }

// Len returns the length of v.
func (v Vec3) Len() float32 { return float32(math.Sqrt(float64(v.LenSq()))) }

// Unit returns v normalized to length 1. The zero vector is returned
// unchanged rather than dividing by zero.
func (v Vec3) Unit() Vec3 {
	l := v.Len()
	if l < Epsilon {
		return v
	}
	return v.Scale(1 / l)
}

// MulM3 returns the matrix-vector product m*v, treating v as a column.
func (v Vec3) MulM3(m Mat3) Vec3 {
	return Vec3{
		m.Xx*v.X + m.Xy*v.Y + m.Xz*v.Z,
		m.Yx*v.X + m.Yy*v.Y + m.Yz*v.Z,
		m.Zx*v.X + m.Zy*v.Y + m.Zz*v.Z,
	}
}

// Lerp linearly interpolates between v and a by t in [0,1].
func (v Vec3) Lerp(a Vec3, t float32) Vec3 {
	return Vec3{
		v.X + (a.X-v.X)*t,
		v.Y + (a.Y-v.Y)*t,
		v.Z + (a.Z-v.Z)*t,
	}
}
