// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package broadphase

import (
	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

const nullNode = -1

// fatMargin is how far a leaf's stored AABB is expanded past its tight
// fit. A moving leaf whose tight AABB is still contained by its fat AABB
// does not need a tree update, trading a few false-positive overlap pairs
// (filtered out by narrowphase) for far fewer tree mutations.
const fatMargin = 0.1

// predictionScale stretches the fat AABB along a leaf's last-known
// displacement, so a body moving steadily in one direction is less likely
// to outrun its own fattened leaf before the next update.
const predictionScale = 2.0

type node struct {
	box             AABB
	parent          int
	child1, child2  int
	height          int16 // -1 marks a free-list entry, 0 a leaf
	payload         handle.Handle
}

func (n *node) isLeaf() bool { return n.child1 == nullNode }

// Tree is a dynamic AABB tree: insertion picks the sibling that minimizes
// total surface area growth, removal promotes the deleted leaf's sibling
// into its parent's slot. Every leaf's stored box is fattened so small
// motions are absorbed without a tree mutation; Move only triggers
// a remove/reinsert when the tight box escapes the fat one.
type Tree struct {
	nodes    []node
	root     int
	freeList int
}

// NewTree creates an empty dynamic tree.
func NewTree() *Tree {
	return &Tree{root: nullNode, freeList: nullNode}
}

func (t *Tree) allocNode() int {
	if t.freeList == nullNode {
		idx := len(t.nodes)
		t.nodes = append(t.nodes, node{parent: nullNode, child1: nullNode, child2: nullNode, height: -1})
		t.freeList = idx
	}
	idx := t.freeList
	t.freeList = t.nodes[idx].child1
	t.nodes[idx] = node{parent: nullNode, child1: nullNode, child2: nullNode, height: 0}
	return idx
}

func (t *Tree) freeNode(idx int) {
	t.nodes[idx].height = -1
	t.nodes[idx].child1 = t.freeList
	t.freeList = idx
}

// Insert adds a leaf for payload with tight bounding box box, fattens it,
// and returns the proxy id used for Remove/Move/queries.
func (t *Tree) Insert(box AABB, payload handle.Handle) int {
	leaf := t.allocNode()
	t.nodes[leaf].box = Expand(box, fatMargin)
	t.nodes[leaf].payload = payload
	t.insertLeaf(leaf)
	return leaf
}

// Remove deletes the proxy. proxyID must have come from Insert and not
// already been removed.
func (t *Tree) Remove(proxyID int) {
	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// Box returns a proxy's current fattened bounding box.
func (t *Tree) Box(proxyID int) AABB { return t.nodes[proxyID].box }

// Payload returns the handle a proxy was inserted with.
func (t *Tree) Payload(proxyID int) handle.Handle { return t.nodes[proxyID].payload }

// Move updates a proxy's tight box. If the tight box still fits inside the
// proxy's fattened box, nothing changes and Move returns false (cheap
// path — most steps for a resting or slowly moving body). Otherwise the
// leaf is removed and reinserted with a freshly fattened box, stretched
// along displacement, and Move returns true.
func (t *Tree) Move(proxyID int, tight AABB, displacement lin.Vec3) bool {
	fat := t.nodes[proxyID].box
	if Contains(fat, tight) {
		return false
	}
	newFat := Expand(tight, fatMargin)
	if displacement.X < 0 {
		newFat.Min.X += displacement.X * predictionScale
	} else {
		newFat.Max.X += displacement.X * predictionScale
	}
	if displacement.Y < 0 {
		newFat.Min.Y += displacement.Y * predictionScale
	} else {
		newFat.Max.Y += displacement.Y * predictionScale
	}
	if displacement.Z < 0 {
		newFat.Min.Z += displacement.Z * predictionScale
	} else {
		newFat.Max.Z += displacement.Z * predictionScale
	}
	t.removeLeaf(proxyID)
	t.nodes[proxyID].box = newFat
	t.insertLeaf(proxyID)
	return true
}

// insertLeaf descends from the root picking, at each internal node, the
// child whose subtree grows least in surface area to accommodate leaf,
// then rebuilds the ancestor chain's boxes and heights.
func (t *Tree) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}
	leafBox := t.nodes[leaf].box
	idx := t.root
	for !t.nodes[idx].isLeaf() {
		child1, child2 := t.nodes[idx].child1, t.nodes[idx].child2
		area := t.nodes[idx].box.Area()
		combined := Union(t.nodes[idx].box, leafBox)
		combinedArea := combined.Area()

		cost := 2 * combinedArea
		inheritCost := 2 * (combinedArea - area)

		cost1 := t.childCost(child1, leafBox) + inheritCost
		cost2 := t.childCost(child2, leafBox) + inheritCost

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			idx = child1
		} else {
			idx = child2
		}
	}

	sibling := idx
	oldParent := t.nodes[sibling].parent
	newParent := t.allocNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].box = Union(leafBox, t.nodes[sibling].box)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
	} else {
		t.nodes[newParent].child1 = sibling
		t.nodes[newParent].child2 = leaf
		t.nodes[sibling].parent = newParent
		t.nodes[leaf].parent = newParent
		t.root = newParent
	}

	t.fixupAncestors(t.nodes[leaf].parent)
}

func (t *Tree) childCost(child int, leafBox AABB) float32 {
	box := Union(leafBox, t.nodes[child].box)
	if t.nodes[child].isLeaf() {
		return box.Area()
	}
	return box.Area() - t.nodes[child].box.Area()
}

func (t *Tree) fixupAncestors(idx int) {
	for idx != nullNode {
		child1, child2 := t.nodes[idx].child1, t.nodes[idx].child2
		t.nodes[idx].box = Union(t.nodes[child1].box, t.nodes[child2].box)
		h1, h2 := t.nodes[child1].height, t.nodes[child2].height
		if h1 > h2 {
			t.nodes[idx].height = h1 + 1
		} else {
			t.nodes[idx].height = h2 + 1
		}
		idx = t.nodes[idx].parent
	}
}

func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}
	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != nullNode {
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)
		t.fixupAncestors(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}
}

// Query invokes visit for every leaf whose fattened box overlaps box,
// stopping early if visit returns false.
func (t *Tree) Query(box AABB, visit func(proxyID int) bool) {
	if t.root == nullNode {
		return
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		n := len(stack) - 1
		idx := stack[n]
		stack = stack[:n]
		if idx == nullNode {
			continue
		}
		if !Overlaps(t.nodes[idx].box, box) {
			continue
		}
		if t.nodes[idx].isLeaf() {
			if !visit(idx) {
				return
			}
			continue
		}
		stack = append(stack, t.nodes[idx].child1, t.nodes[idx].child2)
	}
}
