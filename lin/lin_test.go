// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "testing"

func TestVec3Add(t *testing.T) {
	got := V3(1, 2, 3).Add(V3(4, 5, 6))
	if want := V3(5, 7, 9); !got.Eq(want) {
		t.Errorf("Add() = %v, want %v", got, want)
	}
}

func TestVec3Unit(t *testing.T) {
	got := V3(3, 0, 0).Unit()
	if want := V3(1, 0, 0); !got.Aeq(want) {
		t.Errorf("Unit() = %v, want %v", got, want)
	}
	if got := Zero3.Unit(); !got.Eq(Zero3) {
		t.Errorf("Unit() of zero vector = %v, want zero vector unchanged", got)
	}
}

func TestQuatIntegrateZeroAngularVelocity(t *testing.T) {
	q := QuatI
	got := q.IntegrateAngularVelocity(Zero3, 1.0/60.0, 1e-15)
	if !got.Eq(q) {
		t.Errorf("zero angular velocity must leave orientation bit-exact: got %v, want %v", got, q)
	}
}

func TestQuatIntegrateStaysUnit(t *testing.T) {
	q := QuatI
	omega := V3(0, 4, 0)
	for i := 0; i < 120; i++ {
		q = q.IntegrateAngularVelocity(omega, 1.0/60.0, 1e-15)
	}
	if l := q.Len(); l < 1-1e-5 || l > 1+1e-5 {
		t.Errorf("orientation norm drifted to %f after repeated integration", l)
	}
}

func TestQuatRotateVec3Identity(t *testing.T) {
	v := V3(1, 2, 3)
	if got := QuatI.RotateVec3(v); !got.Aeq(v) {
		t.Errorf("identity rotation changed vector: got %v, want %v", got, v)
	}
}

func TestMat3RotateSym3Identity(t *testing.T) {
	s := Sym3{Xx: 1, Yy: 2, Zz: 3}
	got := RotateSym3(Mat3I, s)
	want := s.Mat3()
	if got != want {
		t.Errorf("RotateSym3 with identity rotation = %v, want %v", got, want)
	}
}

func TestWideVec3GatherScatter(t *testing.T) {
	in := []Vec3{V3(1, 1, 1), V3(2, 2, 2), V3(3, 3, 3)}
	bundle := GatherVec3(in)
	out := make([]Vec3, len(in))
	bundle.Scatter(out)
	for i := range in {
		if !out[i].Eq(in[i]) {
			t.Errorf("lane %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestWideFloatClamp(t *testing.T) {
	w := Splat(5)
	lo := Splat(0)
	hi := Splat(3)
	got := w.Clamp(lo, hi)
	want := Splat(3)
	if got != want {
		t.Errorf("Clamp() = %v, want %v", got, want)
	}
}
