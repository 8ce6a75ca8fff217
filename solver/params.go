// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package solver

// Params controls the solver's per-step behavior.
type Params struct {
	Iterations              int     // K in the prestep/warm-start/iterate/integrate sequence; default 8
	MaximumRecoveryVelocity float32 // bias velocity clamp, prevents explosive correction of deep penetrations
	BaumgarteFactor         float32 // fraction of position error corrected per step as bias velocity
}

// DefaultParams matches the engine's documented default iteration count.
func DefaultParams() Params {
	return Params{
		Iterations:              8,
		MaximumRecoveryVelocity: 4.0,
		BaumgarteFactor:         0.2,
	}
}

// Spring holds the natural-frequency/damping-ratio description the
// engine's implicit-spring formulation derives softness and effective
// mass CFM scale from — used by every constraint kind's prestep.
type Spring struct {
	NaturalFrequency float32 // ω, rad/s
	DampingRatio     float32 // ζ
}

// coefficients returns the standard implicit-spring (CFM, ERP-like bias
// scale) pair for this spring at timestep dt: biasRate is multiplied by
// position error to form bias velocity, softness is added to the
// effective-mass denominator (JM⁻¹Jᵀ + softness)⁻¹.
func (sp Spring) coefficients(dt float32) (biasRate, softness float32) {
	if sp.NaturalFrequency <= 0 {
		// A non-positive frequency means "rigid": no softness, full
		// correction rate bounded by BaumgarteFactor at the call site.
		return 0, 0
	}
	w := sp.NaturalFrequency
	z := sp.DampingRatio
	c := dt * w * (2*z + dt*w)
	invC := float32(1)
	if c > 1e-9 {
		invC = 1 / (1 + c)
	}
	biasRate = (w * w * dt * invC)
	softness = invC / (dt * dt)
	return biasRate, softness
}
