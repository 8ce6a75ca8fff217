// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package body is the rigid body store: a set of parallel arrays holding
// pose, velocity and mass/inertia properties, partitioned into one active
// set and any number of inactive (sleeping-island) sets. A Handle is a
// stable reference into the store that survives compaction; the store
// itself tracks where each Handle currently lives so callers never need to
// remember an index across a step.
package body

import (
	"fmt"

	"github.com/gazed/physx/handle"
	"github.com/gazed/physx/lin"
)

// ActiveSet is the reserved index of the set holding awake bodies.
// Indices ≥ 1 are inactive (sleeping) sets, one per island put to sleep.
const ActiveSet = 0

// Properties describes a body at creation time.
type Properties struct {
	Position        lin.Vec3
	Orientation     lin.Quat
	LinearVelocity  lin.Vec3
	AngularVelocity lin.Vec3
	InverseMass     float32  // 0 for kinematic/static bodies
	InverseInertia  lin.Sym3 // local-space; zero tensor for kinematic bodies
}

// location is where the store currently finds a given Handle.
type location struct {
	set   int
	index int
}

// set is one parallel-array partition: either the single active set or one
// sleeping island.
type set struct {
	handles         []handle.Handle
	position        []lin.Vec3
	orientation     []lin.Quat
	linearVelocity  []lin.Vec3
	angularVelocity []lin.Vec3
	invMass         []float32
	invInertiaLocal []lin.Sym3
	invInertiaWorld []lin.Mat3
	sleepTime       []float32 // consecutive steps spent below the sleep-candidacy threshold
}

func (s *set) len() int { return len(s.handles) }

func (s *set) append(h handle.Handle, p Properties) int {
	idx := len(s.handles)
	s.handles = append(s.handles, h)
	s.position = append(s.position, p.Position)
	s.orientation = append(s.orientation, p.Orientation)
	s.linearVelocity = append(s.linearVelocity, p.LinearVelocity)
	s.angularVelocity = append(s.angularVelocity, p.AngularVelocity)
	s.invMass = append(s.invMass, p.InverseMass)
	s.invInertiaLocal = append(s.invInertiaLocal, p.InverseInertia)
	s.invInertiaWorld = append(s.invInertiaWorld, p.InverseInertia.Mat3())
	s.sleepTime = append(s.sleepTime, 0)
	return idx
}

// removeSwap removes the entry at idx via swap-with-last, returning the
// Handle that moved into idx (or handle.Nil if idx was already last).
func (s *set) removeSwap(idx int) handle.Handle {
	last := len(s.handles) - 1
	moved := handle.Nil
	if idx != last {
		s.handles[idx] = s.handles[last]
		s.position[idx] = s.position[last]
		s.orientation[idx] = s.orientation[last]
		s.linearVelocity[idx] = s.linearVelocity[last]
		s.angularVelocity[idx] = s.angularVelocity[last]
		s.invMass[idx] = s.invMass[last]
		s.invInertiaLocal[idx] = s.invInertiaLocal[last]
		s.invInertiaWorld[idx] = s.invInertiaWorld[last]
		s.sleepTime[idx] = s.sleepTime[last]
		moved = s.handles[idx]
	}
	s.handles = s.handles[:last]
	s.position = s.position[:last]
	s.orientation = s.orientation[:last]
	s.linearVelocity = s.linearVelocity[:last]
	s.angularVelocity = s.angularVelocity[:last]
	s.invMass = s.invMass[:last]
	s.invInertiaLocal = s.invInertiaLocal[:last]
	s.invInertiaWorld = s.invInertiaWorld[:last]
	s.sleepTime = s.sleepTime[:last]
	return moved
}

// Store owns the active set and every inactive (sleeping) set, plus the
// Handle-to-location index kept current across every mutation.
type Store struct {
	handles *handle.Table
	sets    []*set // sets[0] is always the active set
	at      map[handle.Handle]location
}

// NewStore creates a store with only the (empty) active set.
func NewStore() *Store {
	return &Store{
		handles: handle.NewTable(),
		sets:    []*set{{}},
		at:      map[handle.Handle]location{},
	}
}

// Add inserts a new body into the active set and returns its Handle.
func (s *Store) Add(p Properties) handle.Handle {
	h := s.handles.Create()
	idx := s.sets[ActiveSet].append(h, p)
	s.at[h] = location{set: ActiveSet, index: idx}
	return h
}

// Remove deletes h from whichever set currently holds it.
func (s *Store) Remove(h handle.Handle) {
	loc, ok := s.at[h]
	if !ok {
		return
	}
	moved := s.sets[loc.set].removeSwap(loc.index)
	delete(s.at, h)
	if moved != handle.Nil {
		s.at[moved] = loc
	}
	s.handles.Dispose(h)
}

// Contains reports whether h currently lives in the store.
func (s *Store) Contains(h handle.Handle) bool {
	_, ok := s.at[h]
	return ok
}

// SetOf reports which set h currently lives in.
func (s *Store) SetOf(h handle.Handle) (int, bool) {
	loc, ok := s.at[h]
	return loc.set, ok
}

// NewInactiveSet allocates a new empty sleeping-island set and returns its
// index (≥ 1) for subsequent MoveToSet calls.
func (s *Store) NewInactiveSet() int {
	s.sets = append(s.sets, &set{})
	return len(s.sets) - 1
}

// SetCount returns the number of sets, including the active set.
func (s *Store) SetCount() int { return len(s.sets) }

// SetLen returns how many bodies currently occupy the given set.
func (s *Store) SetLen(setIdx int) int { return s.sets[setIdx].len() }

// Handles returns the handles of every body in the given set, in
// store-internal order (not stable across mutation).
func (s *Store) Handles(setIdx int) []handle.Handle { return s.sets[setIdx].handles }

// MoveToSet relocates h from its current set to dst, preserving its
// properties. Used by the sleeper to migrate an island to an inactive set,
// and by the activator to migrate it back to the active set.
func (s *Store) MoveToSet(h handle.Handle, dst int) {
	loc, ok := s.at[h]
	if !ok {
		panic(fmt.Sprintf("body: MoveToSet on unknown handle %v", h))
	}
	if loc.set == dst {
		return
	}
	src := s.sets[loc.set]
	p := Properties{
		Position:        src.position[loc.index],
		Orientation:     src.orientation[loc.index],
		LinearVelocity:  src.linearVelocity[loc.index],
		AngularVelocity: src.angularVelocity[loc.index],
		InverseMass:     src.invMass[loc.index],
		InverseInertia:  src.invInertiaLocal[loc.index],
	}
	world := src.invInertiaWorld[loc.index]
	moved := src.removeSwap(loc.index)
	if moved != handle.Nil {
		s.at[moved] = loc
	}
	newIdx := s.sets[dst].append(h, p)
	s.sets[dst].invInertiaWorld[newIdx] = world
	s.at[h] = location{set: dst, index: newIdx}
}

// IsKinematic reports whether h has zero inverse mass (static or
// kinematic): the pose integrator and solver must never impart velocity to
// such a body.
func (s *Store) IsKinematic(h handle.Handle) bool {
	loc := s.at[h]
	return s.sets[loc.set].invMass[loc.index] == 0
}

// --- per-handle property accessors, used off the hot path (setup,
// diagnostics, tests); the hot path gathers directly from a set's slices
// via the bundle accessors below. ---

func (s *Store) Position(h handle.Handle) lin.Vec3 {
	loc := s.at[h]
	return s.sets[loc.set].position[loc.index]
}

func (s *Store) SetPosition(h handle.Handle, v lin.Vec3) {
	loc := s.at[h]
	s.sets[loc.set].position[loc.index] = v
}

func (s *Store) Orientation(h handle.Handle) lin.Quat {
	loc := s.at[h]
	return s.sets[loc.set].orientation[loc.index]
}

func (s *Store) SetOrientation(h handle.Handle, q lin.Quat) {
	loc := s.at[h]
	s.sets[loc.set].orientation[loc.index] = q
}

func (s *Store) LinearVelocity(h handle.Handle) lin.Vec3 {
	loc := s.at[h]
	return s.sets[loc.set].linearVelocity[loc.index]
}

func (s *Store) SetLinearVelocity(h handle.Handle, v lin.Vec3) {
	loc := s.at[h]
	s.sets[loc.set].linearVelocity[loc.index] = v
}

func (s *Store) AngularVelocity(h handle.Handle) lin.Vec3 {
	loc := s.at[h]
	return s.sets[loc.set].angularVelocity[loc.index]
}

func (s *Store) SetAngularVelocity(h handle.Handle, v lin.Vec3) {
	loc := s.at[h]
	s.sets[loc.set].angularVelocity[loc.index] = v
}

func (s *Store) InverseInertiaWorld(h handle.Handle) lin.Mat3 {
	loc := s.at[h]
	return s.sets[loc.set].invInertiaWorld[loc.index]
}

func (s *Store) SetInverseInertiaWorld(h handle.Handle, m lin.Mat3) {
	loc := s.at[h]
	s.sets[loc.set].invInertiaWorld[loc.index] = m
}

func (s *Store) InverseMass(h handle.Handle) float32 {
	loc := s.at[h]
	return s.sets[loc.set].invMass[loc.index]
}

func (s *Store) InverseInertiaLocal(h handle.Handle) lin.Sym3 {
	loc := s.at[h]
	return s.sets[loc.set].invInertiaLocal[loc.index]
}

func (s *Store) SleepTime(h handle.Handle) float32 {
	loc := s.at[h]
	return s.sets[loc.set].sleepTime[loc.index]
}

func (s *Store) SetSleepTime(h handle.Handle, t float32) {
	loc := s.at[h]
	s.sets[loc.set].sleepTime[loc.index] = t
}

// --- bulk, index-addressed accessors over a set's arrays, for the
// bounding-box batcher and solver bundle gather/scatter. ---

// Positions returns the raw position slice for setIdx, for gathering into
// WideVec3 bundles without per-element Handle lookups.
func (s *Store) Positions(setIdx int) []lin.Vec3 { return s.sets[setIdx].position }

// Orientations returns the raw orientation slice for setIdx.
func (s *Store) Orientations(setIdx int) []lin.Quat { return s.sets[setIdx].orientation }

// LinearVelocities returns the raw linear velocity slice for setIdx.
func (s *Store) LinearVelocities(setIdx int) []lin.Vec3 { return s.sets[setIdx].linearVelocity }

// AngularVelocities returns the raw angular velocity slice for setIdx.
func (s *Store) AngularVelocities(setIdx int) []lin.Vec3 { return s.sets[setIdx].angularVelocity }

// InverseMasses returns the raw inverse mass slice for setIdx.
func (s *Store) InverseMasses(setIdx int) []float32 { return s.sets[setIdx].invMass }

// InverseInertiasWorld returns the raw world-space inverse inertia slice
// for setIdx.
func (s *Store) InverseInertiasWorld(setIdx int) []lin.Mat3 { return s.sets[setIdx].invInertiaWorld }

// InverseInertiasLocal returns the raw local-space inverse inertia slice
// for setIdx.
func (s *Store) InverseInertiasLocal(setIdx int) []lin.Sym3 { return s.sets[setIdx].invInertiaLocal }

// SleepTimes returns the raw sleep-candidacy timer slice for setIdx.
func (s *Store) SleepTimes(setIdx int) []float32 { return s.sets[setIdx].sleepTime }
