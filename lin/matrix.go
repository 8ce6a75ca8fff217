// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// Mat3 is a row-major 3x3 matrix, used for world-space inverse inertia
// tensors and rotation matrices.
type Mat3 struct {
	Xx, Xy, Xz float32
	Yx, Yy, Yz float32
	Zx, Zy, Zz float32
}

// Mat3I is the 3x3 identity matrix. Treat as read-only.
var Mat3I = Mat3{
	Xx: 1, Xy: 0, Xz: 0,
	Yx: 0, Yy: 1, Yz: 0,
	Zx: 0, Zy: 0, Zz: 1,
}

// Sym3 is a symmetric 3x3 matrix, the natural storage for a local inverse
// inertia tensor: six independent components instead of nine.
type Sym3 struct {
	Xx, Yy, Zz float32 // diagonal
	Xy, Xz, Yz float32 // off-diagonal (mirrored)
}

// Mat3 expands a symmetric matrix into a full Mat3.
func (s Sym3) Mat3() Mat3 {
	return Mat3{
		Xx: s.Xx, Xy: s.Xy, Xz: s.Xz,
		Yx: s.Xy, Yy: s.Yy, Yz: s.Yz,
		Zx: s.Xz, Zy: s.Yz, Zz: s.Zz,
	}
}

// Transpose returns the transpose of m.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		Xx: m.Xx, Xy: m.Yx, Xz: m.Zx,
		Yx: m.Xy, Yy: m.Yy, Yz: m.Zy,
		Zx: m.Xz, Zy: m.Yz, Zz: m.Zz,
	}
}

// Mult returns m*r.
func (m Mat3) Mult(r Mat3) Mat3 {
	return Mat3{
		Xx: m.Xx*r.Xx + m.Xy*r.Yx + m.Xz*r.Zx,
		Xy: m.Xx*r.Xy + m.Xy*r.Yy + m.Xz*r.Zy,
		Xz: m.Xx*r.Xz + m.Xy*r.Yz + m.Xz*r.Zz,

		Yx: m.Yx*r.Xx + m.Yy*r.Yx + m.Yz*r.Zx,
		Yy: m.Yx*r.Xy + m.Yy*r.Yy + m.Yz*r.Zy,
		Yz: m.Yx*r.Xz + m.Yy*r.Yz + m.Yz*r.Zz,

		Zx: m.Zx*r.Xx + m.Zy*r.Yx + m.Zz*r.Zx,
		Zy: m.Zx*r.Xy + m.Zy*r.Yy + m.Zz*r.Zy,
		Zz: m.Zx*r.Xz + m.Zy*r.Yz + m.Zz*r.Zz,
	}
}

// MulVec3 returns m*v, treating v as a column vector.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m.Xx*v.X + m.Xy*v.Y + m.Xz*v.Z,
		m.Yx*v.X + m.Yy*v.Y + m.Yz*v.Z,
		m.Zx*v.X + m.Zy*v.Y + m.Zz*v.Z,
	}
}

// Add returns m+r.
func (m Mat3) Add(r Mat3) Mat3 {
	return Mat3{
		Xx: m.Xx + r.Xx, Xy: m.Xy + r.Xy, Xz: m.Xz + r.Xz,
		Yx: m.Yx + r.Yx, Yy: m.Yy + r.Yy, Yz: m.Yz + r.Yz,
		Zx: m.Zx + r.Zx, Zy: m.Zy + r.Zy, Zz: m.Zz + r.Zz,
	}
}

// Neg returns -m.
func (m Mat3) Neg() Mat3 {
	return Mat3{
		Xx: -m.Xx, Xy: -m.Xy, Xz: -m.Xz,
		Yx: -m.Yx, Yy: -m.Yy, Yz: -m.Yz,
		Zx: -m.Zx, Zy: -m.Zy, Zz: -m.Zz,
	}
}

// Determinant returns det(m).
func (m Mat3) Determinant() float32 {
	return m.Xx*(m.Yy*m.Zz-m.Yz*m.Zy) -
		m.Xy*(m.Yx*m.Zz-m.Yz*m.Zx) +
		m.Xz*(m.Yx*m.Zy-m.Yy*m.Zx)
}

// Inverse returns the inverse of m, or the zero matrix if m is singular
// (determinant within Epsilon of zero) — the natural "this constraint
// contributes no correction this step" fallback for a degenerate effective
// mass (e.g. two infinite-mass bodies pinned together).
func (m Mat3) Inverse() Mat3 {
	det := m.Determinant()
	if det > -Epsilon && det < Epsilon {
		return Mat3{}
	}
	invDet := 1 / det
	return Mat3{
		Xx: (m.Yy*m.Zz - m.Yz*m.Zy) * invDet,
		Xy: (m.Xz*m.Zy - m.Xy*m.Zz) * invDet,
		Xz: (m.Xy*m.Yz - m.Xz*m.Yy) * invDet,
		Yx: (m.Yz*m.Zx - m.Yx*m.Zz) * invDet,
		Yy: (m.Xx*m.Zz - m.Xz*m.Zx) * invDet,
		Yz: (m.Xz*m.Yx - m.Xx*m.Yz) * invDet,
		Zx: (m.Yx*m.Zy - m.Yy*m.Zx) * invDet,
		Zy: (m.Xy*m.Zx - m.Xx*m.Zy) * invDet,
		Zz: (m.Xx*m.Yy - m.Xy*m.Yx) * invDet,
	}
}

// RotateSym3 returns the world-space inverse inertia tensor R·I⁻¹·Rᵀ for
// local (symmetric) inverse inertia s and rotation r, as the pose
// integrator computes once per active body per step. The result is
// symmetric by construction (a conjugation of a symmetric matrix by a
// rotation is always symmetric); it is returned as a full Mat3 since the
// solver consumes it as a dense matrix on the hot path.
func RotateSym3(r Mat3, s Sym3) Mat3 {
	return r.Mult(s.Mat3()).Mult(r.Transpose())
}
