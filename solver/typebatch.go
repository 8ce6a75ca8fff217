// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package solver

import "github.com/gazed/physx/handle"

// TypeBatch stores every live constraint of one Kind within one batch, as
// parallel slices indexed by slot. The prestep/iterate pipeline visits
// slots one at a time, from 0 up to Len(); slots are not gathered into
// LaneWidth bundles.
type TypeBatch struct {
	kind    any // pairs.Kind, stored as any to keep this file import-light
	handles []handle.Handle
	a, b    []handle.Handle
	data    []any // kind-specific prestep description + running state
}

func newTypeBatch(kind any) *TypeBatch {
	return &TypeBatch{kind: kind}
}

// Len returns the number of live constraints in this type batch.
func (tb *TypeBatch) Len() int { return len(tb.a) }

func (tb *TypeBatch) insert(h, a, b handle.Handle, data any) int {
	idx := len(tb.a)
	tb.handles = append(tb.handles, h)
	tb.a = append(tb.a, a)
	tb.b = append(tb.b, b)
	tb.data = append(tb.data, data)
	return idx
}

// remove deletes the constraint at idx via swap-with-last, returning the
// removed constraint's body handles and, if a different slot's occupant
// moved into idx, that occupant's own constraint handle and its new index
// (always idx, since that's where it moved to).
func (tb *TypeBatch) remove(idx int) (a, b, moved handle.Handle, movedTo int) {
	a, b = tb.a[idx], tb.b[idx]
	last := len(tb.a) - 1
	if idx != last {
		tb.handles[idx] = tb.handles[last]
		tb.a[idx] = tb.a[last]
		tb.b[idx] = tb.b[last]
		tb.data[idx] = tb.data[last]
		moved = tb.handles[idx]
	}
	tb.handles = tb.handles[:last]
	tb.a = tb.a[:last]
	tb.b = tb.b[:last]
	tb.data = tb.data[:last]
	return a, b, moved, idx
}

// Bodies returns the (a, b) body handles at slot idx.
func (tb *TypeBatch) Bodies(idx int) (handle.Handle, handle.Handle) { return tb.a[idx], tb.b[idx] }

// Data returns the kind-specific description/state at slot idx.
func (tb *TypeBatch) Data(idx int) any { return tb.data[idx] }

// SetData replaces the kind-specific description/state at slot idx.
func (tb *TypeBatch) SetData(idx int, d any) { tb.data[idx] = d }
