// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// LaneWidth is the number of lanes in one Wide bundle. Lanes past the
// values gathered are left zero (inert padding). The solver in this module
// does not use these bundles: it processes one constraint at a time with
// the scalar types.
//
// A production build would select this to match the target's preferred
// SIMD register width (4 for SSE-class float32x4, 8 for AVX2). Pure Go has
// no portable SIMD intrinsics, so WideFloat et al. are implemented as plain
// arrays operated on with ordinary loops; the compiler is expected to
// auto-vectorize the loop bodies on platforms where it can, and the scalar
// fallback (operating one lane at a time) is always correct regardless.
const LaneWidth = 8

// WideFloat holds LaneWidth independent float32 lanes.
type WideFloat [LaneWidth]float32

// Add returns the lanewise sum of w and a.
func (w WideFloat) Add(a WideFloat) WideFloat {
	var r WideFloat
	for i := range r {
		r[i] = w[i] + a[i]
	}
	return r
}

// Sub returns the lanewise difference w-a.
func (w WideFloat) Sub(a WideFloat) WideFloat {
	var r WideFloat
	for i := range r {
		r[i] = w[i] - a[i]
	}
	return r
}

// Mul returns the lanewise product of w and a.
func (w WideFloat) Mul(a WideFloat) WideFloat {
	var r WideFloat
	for i := range r {
		r[i] = w[i] * a[i]
	}
	return r
}

// Scale returns every lane of w multiplied by scalar s.
func (w WideFloat) Scale(s float32) WideFloat {
	var r WideFloat
	for i := range r {
		r[i] = w[i] * s
	}
	return r
}

// Clamp returns w with each lane clamped to [lo[i], hi[i]].
func (w WideFloat) Clamp(lo, hi WideFloat) WideFloat {
	var r WideFloat
	for i := range r {
		v := w[i]
		if v < lo[i] {
			v = lo[i]
		}
		if v > hi[i] {
			v = hi[i]
		}
		r[i] = v
	}
	return r
}

// Splat returns every lane set to s — used to broadcast a scalar
// (e.g. a friction coefficient) across a bundle.
func Splat(s float32) WideFloat {
	var r WideFloat
	for i := range r {
		r[i] = s
	}
	return r
}

// WideVec3 holds LaneWidth independent 3-vectors, laid out as three
// WideFloat planes (struct-of-arrays) so a lanewise operation on one
// component is a contiguous, auto-vectorizable loop.
type WideVec3 struct {
	X, Y, Z WideFloat
}

// Add returns the lanewise sum of w and a.
func (w WideVec3) Add(a WideVec3) WideVec3 {
	return WideVec3{w.X.Add(a.X), w.Y.Add(a.Y), w.Z.Add(a.Z)}
}

// Sub returns the lanewise difference w-a.
func (w WideVec3) Sub(a WideVec3) WideVec3 {
	return WideVec3{w.X.Sub(a.X), w.Y.Sub(a.Y), w.Z.Sub(a.Z)}
}

// Scale returns every lane of w scaled by the per-lane factor s.
func (w WideVec3) Scale(s WideFloat) WideVec3 {
	return WideVec3{w.X.Mul(s), w.Y.Mul(s), w.Z.Mul(s)}
}

// Dot returns the lanewise dot product of w and a.
func (w WideVec3) Dot(a WideVec3) WideFloat {
	return w.X.Mul(a.X).Add(w.Y.Mul(a.Y)).Add(w.Z.Mul(a.Z))
}

// Cross returns the lanewise cross product w × a.
func (w WideVec3) Cross(a WideVec3) WideVec3 {
	return WideVec3{
		X: w.Y.Mul(a.Z).Sub(w.Z.Mul(a.Y)),
		Y: w.Z.Mul(a.X).Sub(w.X.Mul(a.Z)),
		Z: w.X.Mul(a.Y).Sub(w.Y.Mul(a.X)),
	}
}

// GatherVec3 packs LaneWidth scalar vectors into one bundle. Lanes beyond
// len(vs) are left zero (inert padding lanes).
func GatherVec3(vs []Vec3) WideVec3 {
	var w WideVec3
	for i := 0; i < len(vs) && i < LaneWidth; i++ {
		w.X[i], w.Y[i], w.Z[i] = vs[i].X, vs[i].Y, vs[i].Z
	}
	return w
}

// Scatter unpacks the first n lanes of the bundle back into out.
func (w WideVec3) Scatter(out []Vec3) {
	n := len(out)
	if n > LaneWidth {
		n = LaneWidth
	}
	for i := 0; i < n; i++ {
		out[i] = Vec3{w.X[i], w.Y[i], w.Z[i]}
	}
}

// WideSym3 holds LaneWidth independent symmetric 3x3 matrices (world-space
// inverse inertia tensors), struct-of-arrays over the six independent terms.
type WideSym3 struct {
	Xx, Yy, Zz WideFloat
	Xy, Xz, Yz WideFloat
}

// MulVec3 returns the lanewise product of the symmetric matrix bundle with
// the vector bundle v.
func (w WideSym3) MulVec3(v WideVec3) WideVec3 {
	return WideVec3{
		X: w.Xx.Mul(v.X).Add(w.Xy.Mul(v.Y)).Add(w.Xz.Mul(v.Z)),
		Y: w.Xy.Mul(v.X).Add(w.Yy.Mul(v.Y)).Add(w.Yz.Mul(v.Z)),
		Z: w.Xz.Mul(v.X).Add(w.Yz.Mul(v.Y)).Add(w.Zz.Mul(v.Z)),
	}
}

// GatherSym3 packs LaneWidth symmetric matrices into one bundle.
func GatherSym3(ms []Sym3) WideSym3 {
	var w WideSym3
	for i := 0; i < len(ms) && i < LaneWidth; i++ {
		w.Xx[i], w.Yy[i], w.Zz[i] = ms[i].Xx, ms[i].Yy, ms[i].Zz
		w.Xy[i], w.Xz[i], w.Yz[i] = ms[i].Xy, ms[i].Xz, ms[i].Yz
	}
	return w
}
