// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package narrowphase

import "github.com/gazed/physx/handle"

// ShapeKind identifies a collidable's geometric type, the key half of the
// (shape_type_A, shape_type_B) tester dispatch table. Concrete shape
// kinds and concrete pairwise testers (sphere-sphere, box-box, hull-hull,
// ...) are a collaborator's responsibility, not this package's — the
// registry only routes by kind.
type ShapeKind uint16

// Pair identifies the two collidables a tester runs against.
type Pair struct {
	A, B   handle.Handle
	KindA, KindB ShapeKind
}

// Tester produces a manifold for a candidate pair, or ok=false if the
// pair's actual geometry does not touch (broadphase AABBs overlapped but
// the shapes themselves don't).
type Tester func(worker int, pair Pair) (m Manifold, ok bool)

// key orders (KindA, KindB) so a tester registered for (X, Y) also serves
// a pair discovered as (Y, X); Dispatch swaps the manifold's per-contact
// OffsetA/Normal convention is the tester's own responsibility, not
// the registry's, when it detects the swapped order.
type key struct{ a, b ShapeKind }

func orderedKey(a, b ShapeKind) (key, bool) {
	if a <= b {
		return key{a, b}, false
	}
	return key{b, a}, true
}

// Registry maps shape-kind pairs to testers.
type Registry struct {
	testers map[key]Tester
}

// NewRegistry creates an empty tester registry.
func NewRegistry() *Registry { return &Registry{testers: map[key]Tester{}} }

// Register installs the tester for the unordered (a, b) kind pair.
func (r *Registry) Register(a, b ShapeKind, t Tester) {
	k, _ := orderedKey(a, b)
	r.testers[k] = t
}

// AllowFunc gates whether contact generation should even run for a pair
// (e.g. a user-defined collision filter), mirroring allow_contact_generation.
type AllowFunc func(worker int, a, b handle.Handle) bool

// Dispatch runs the registered tester for pair.KindA/KindB, swapping A/B
// first if the pair was registered in the opposite order. Returns ok=false
// if no tester is registered, or the tester itself reports no contact.
func (r *Registry) Dispatch(worker int, pair Pair, allow AllowFunc) (Manifold, bool) {
	if allow != nil && !allow(worker, pair.A, pair.B) {
		return Manifold{}, false
	}
	k, swapped := orderedKey(pair.KindA, pair.KindB)
	t, ok := r.testers[k]
	if !ok {
		return Manifold{}, false
	}
	p := pair
	if swapped {
		p.A, p.B = pair.B, pair.A
		p.KindA, p.KindB = pair.KindB, pair.KindA
	}
	return t(worker, p)
}

// WarmStart matches each contact in fresh against the previous frame's
// manifold by feature id and copies the matched accumulated impulse into
// the corresponding slot of impulses (indexed the same as fresh); contacts
// with no match get zero. Unmatched previous impulses are discarded — no
// redistribution is attempted.
func WarmStart(fresh []Contact, prevFeatures []FeatureID, prevImpulses []float32) []float32 {
	out := make([]float32, len(fresh))
	for i, c := range fresh {
		for j, pf := range prevFeatures {
			if pf == c.Feature {
				out[i] = prevImpulses[j]
				break
			}
		}
	}
	return out
}
