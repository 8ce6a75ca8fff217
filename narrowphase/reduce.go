// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package narrowphase

import "github.com/gazed/physx/lin"

// extremityAxis is a fixed, deliberately non-axis-aligned direction used
// to pick a stable starting contact for manifold reduction. Any fixed
// direction works; axis-aligned choices are avoided so boxes and other
// axis-aligned shapes don't produce degenerate ties every frame.
var extremityAxis = lin.V3(0.28, 0.559, 0.780)

// speculativePenalty discounts a speculative (not-yet-touching, Depth<0)
// contact's contribution when scoring candidates for inclusion, so the
// reduced manifold favors contacts that are actually touching.
const speculativePenalty = 0.2

// indexBias breaks ties between contacts with identical projection/depth
// scores in favor of the higher index, so the same manifold reduces to the
// same subset from one frame to the next when nothing else has changed.
const indexBias = 1e-4

// Reduce selects up to MaxContacts contacts from candidates via
// most-constraining-subset selection: an extremity+depth heuristic picks
// the starting contact, then each subsequent pick maximizes the
// additional constraint leverage (approximated by distance from the
// already-chosen contacts, weighted by depth) the remaining candidates
// would contribute, discounting speculative contacts. candidates with
// len <= MaxContacts are returned unchanged.
func Reduce(candidates []Contact) []Contact {
	if len(candidates) <= MaxContacts {
		return candidates
	}

	startIdx := 0
	startScore := startScoreOf(candidates[0], 0)
	for i := 1; i < len(candidates); i++ {
		if s := startScoreOf(candidates[i], i); s > startScore {
			startScore = s
			startIdx = i
		}
	}

	chosen := make([]Contact, 0, MaxContacts)
	chosen = append(chosen, candidates[startIdx])
	used := make([]bool, len(candidates))
	used[startIdx] = true

	for len(chosen) < MaxContacts {
		bestIdx := -1
		var bestScore float32 = -1e30
		for i, c := range candidates {
			if used[i] {
				continue
			}
			s := leverageScore(c, chosen) + float32(i)*indexBias
			if c.Depth < 0 {
				s *= speculativePenalty
			}
			if s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		used[bestIdx] = true
		chosen = append(chosen, candidates[bestIdx])
	}
	return chosen
}

func startScoreOf(c Contact, idx int) float32 {
	score := c.OffsetA.Dot(extremityAxis)
	if c.Depth >= 0 {
		score += 1000 + c.Depth
	} else {
		score += c.Depth * speculativePenalty
	}
	return score + float32(idx)*indexBias
}

// leverageScore approximates the residual constraint-space impulse a
// candidate would add against the contacts already chosen: a point far
// from the existing set resists rotation the existing points can't, so
// the score is the squared distance to the nearest already-chosen contact,
// scaled by (1 + depth) with negative depths counted as zero (so a
// barely-touching contact keeps its plain distance score).
func leverageScore(c Contact, chosen []Contact) float32 {
	minDistSq := float32(1e30)
	for _, ch := range chosen {
		d := c.OffsetA.Sub(ch.OffsetA).LenSq()
		if d < minDistSq {
			minDistSq = d
		}
	}
	depthWeight := c.Depth
	if depthWeight < 0 {
		depthWeight = 0
	}
	return minDistSq * (1 + depthWeight)
}
