// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package pairs

import (
	"testing"

	"github.com/gazed/physx/handle"
)

func TestUpdateOnAbsentPairEnqueuesAdd(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	_, changed := c.Update(Make(a, b), KindContactConvex1, a, b)
	if !changed {
		t.Fatalf("Update on an absent pair should report changed=true")
	}
	if c.PendingAddCount() != 1 {
		t.Errorf("PendingAddCount() = %d, want 1", c.PendingAddCount())
	}
}

func TestUpdateSameKindIsNoOp(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	p := Make(a, b)
	c.Update(p, KindContactConvex1, a, b)
	c.Flush(func(a, b handle.Handle, k Kind) handle.Handle { return handle.Handle(99) },
		func(handle.Handle) {}, func(handle.Handle) bool { return false })

	_, changed := c.Update(p, KindContactConvex1, a, b)
	if changed {
		t.Errorf("Update with matching kind should not be reported as changed")
	}
	if c.PendingAddCount() != 0 {
		t.Errorf("no new add should be enqueued for a matching-kind update")
	}
}

func TestUpdateKindChangeEnqueuesRemoveAndAdd(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	p := Make(a, b)
	c.Update(p, KindContactConvex1, a, b)
	c.Flush(func(a, b handle.Handle, k Kind) handle.Handle { return handle.Handle(7) },
		func(handle.Handle) {}, func(handle.Handle) bool { return false })

	c.Update(p, KindContactConvex2, a, b)
	if c.PendingRemoveCount() != 1 {
		t.Errorf("PendingRemoveCount() = %d, want 1", c.PendingRemoveCount())
	}
	if c.PendingAddCount() != 1 {
		t.Errorf("PendingAddCount() = %d, want 1", c.PendingAddCount())
	}
}

func TestFlushRealizesAddAndReportsWake(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	p := Make(a, b)
	c.Update(p, KindBallSocket, a, b)

	var addedKind Kind
	wake := c.Flush(
		func(ba, bb handle.Handle, k Kind) handle.Handle { addedKind = k; return handle.Handle(42) },
		func(handle.Handle) {},
		func(h handle.Handle) bool { return h == b },
	)
	if addedKind != KindBallSocket {
		t.Errorf("addFn received kind %v, want KindBallSocket", addedKind)
	}
	e, ok := c.Get(p)
	if !ok || e.ConstraintHandle != handle.Handle(42) {
		t.Fatalf("entry not realized with addFn's handle: %+v ok=%v", e, ok)
	}
	if len(wake) != 1 || wake[0] != b {
		t.Errorf("Flush should report body b as needing wake, got %v", wake)
	}
}

func TestRemoveEnqueuesRemoval(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	p := Make(a, b)
	c.Update(p, KindBallSocket, a, b)
	c.Flush(func(x, y handle.Handle, k Kind) handle.Handle { return handle.Handle(1) },
		func(handle.Handle) {}, func(handle.Handle) bool { return false })

	c.Remove(p)
	if c.PendingRemoveCount() != 1 {
		t.Errorf("PendingRemoveCount() = %d, want 1", c.PendingRemoveCount())
	}
	if _, ok := c.Get(p); ok {
		t.Errorf("pair should no longer resolve after Remove")
	}
}

func TestReassignRepointsEntryAtNewHandle(t *testing.T) {
	c := NewCache()
	a, b := handle.Handle(1), handle.Handle(2)
	p := Make(a, b)
	c.Update(p, KindBallSocket, a, b)
	c.Flush(func(x, y handle.Handle, k Kind) handle.Handle { return handle.Handle(1) },
		func(handle.Handle) {}, func(handle.Handle) bool { return false })

	c.Reassign(p, handle.Handle(99))
	e, ok := c.Get(p)
	if !ok || e.ConstraintHandle != handle.Handle(99) {
		t.Fatalf("expected entry's ConstraintHandle to become 99, got %+v ok=%v", e, ok)
	}
}

func TestReassignOnAbsentPairIsNoOp(t *testing.T) {
	c := NewCache()
	c.Reassign(Make(handle.Handle(1), handle.Handle(2)), handle.Handle(7))
	if c.Len() != 0 {
		t.Errorf("Reassign on an absent pair should not create an entry")
	}
}

func TestMakeOrdersHandlesConsistently(t *testing.T) {
	a, b := handle.Handle(5), handle.Handle(9)
	if Make(a, b) != Make(b, a) {
		t.Errorf("Make should produce the same Pair regardless of argument order")
	}
}
