// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package narrowphase turns broadphase candidate pairs into contact
// manifolds: it dispatches each pair to a registered tester keyed by the
// pair's shape kinds, reduces an oversized non-convex result down to the
// solver's four-contact budget, and carries warm-start impulses forward
// by matching feature ids across frames.
package narrowphase

import "github.com/gazed/physx/lin"

// MaxContacts is the hard cap a manifold is reduced to before reaching the
// solver; contact constraints never bundle more than this many points.
const MaxContacts = 4

// FeatureID identifies a contact's originating geometry (vertex/edge/face
// pair) stably across frames, so warm-start impulses can be matched to the
// same physical contact even as other contacts in the manifold come and go.
type FeatureID uint32

// Contact is one point of contact. Normal is populated only for
// non-convex manifolds, which carry a normal per contact; convex
// manifolds share Manifold.Normal instead and leave Normal zero here.
type Contact struct {
	OffsetA   lin.Vec3 // contact point relative to body A's origin, in world space
	Depth     float32  // penetration depth; negative denotes a speculative (not-yet-touching) contact
	Feature   FeatureID
	Normal    lin.Vec3
}

// Manifold is the tester's output: either convex (shared Normal, Normal
// populated, each Contact.Normal left zero) or non-convex (Normal zero,
// every Contact.Normal populated).
type Manifold struct {
	Convex   bool
	Normal   lin.Vec3
	Contacts []Contact
}

// mix folds a compound child index into a feature id so two different
// children of a compound shape never alias each other's feature space.
func mix(feature FeatureID, childA, childB uint32) FeatureID {
	h := uint32(feature)
	h ^= childA*0x9e3779b9 + 0x7f4a7c15
	h ^= (childB*0x85ebca6b + 0xc2b2ae35) << 1
	return FeatureID(h)
}

// MixFeature is the exported form of mix, used by testers for compound
// shapes to keep per-child feature ids from colliding.
func MixFeature(feature FeatureID, childA, childB uint32) FeatureID {
	return mix(feature, childA, childB)
}
