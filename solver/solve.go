// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package solver

import (
	"context"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/dispatch"
	"github.com/gazed/physx/pairs"
)

// Solve runs the full prestep → warm-start → iterate(K) sequence over
// every batch, in batch order (a later batch may reference a body an
// earlier one already touched, so batches never run concurrently with
// each other). Within one batch, every type batch's bodies are disjoint
// from every other type batch in the same batch by construction (Add
// checks the whole batch's referenced set regardless of kind), so the
// type batches of one batch run as concurrent dispatch jobs when disp is
// non-nil; pass nil for a purely sequential solve.
func (s *Solver) Solve(st *body.Store, dt float32) {
	s.SolveWith(context.Background(), nil, st, dt)
}

// SolveWith is Solve with an explicit context and dispatcher, so a caller
// already holding one (the simulation's configured worker count, or a
// Deterministic dispatcher for reproducible tests) doesn't pay for a
// second one.
func (s *Solver) SolveWith(ctx context.Context, disp *dispatch.Dispatcher, st *body.Store, dt float32) {
	for _, bt := range s.batches {
		kinds := make([]pairs.Kind, 0, len(bt.typeBatches))
		for k := range bt.typeBatches {
			kinds = append(kinds, k)
		}

		runPhase(ctx, disp, kinds, func(k pairs.Kind) {
			tb := bt.typeBatches[k]
			if isContactKind(k) {
				prestepContacts(st, dt, s.Params, tb)
			} else if k == pairs.KindBallSocket {
				prestepBallSockets(st, dt, s.Params, tb)
			}
		})
		runPhase(ctx, disp, kinds, func(k pairs.Kind) {
			tb := bt.typeBatches[k]
			if isContactKind(k) {
				warmStartContacts(st, tb)
			} else if k == pairs.KindBallSocket {
				warmStartBallSockets(st, tb)
			}
		})
		for iter := 0; iter < s.Params.Iterations; iter++ {
			runPhase(ctx, disp, kinds, func(k pairs.Kind) {
				tb := bt.typeBatches[k]
				if isContactKind(k) {
					iterateContacts(st, tb)
				} else if k == pairs.KindBallSocket {
					iterateBallSockets(st, tb)
				}
			})
		}
	}
}

// runPhase runs fn once per kind, fanned out across disp's workers when
// disp is non-nil, sequentially otherwise (Dispatcher.ForJobs already
// collapses to sequential under Deterministic/Workers<=1, but Solve
// itself has no dispatcher to hand it when the caller passes nil).
func runPhase(ctx context.Context, disp *dispatch.Dispatcher, kinds []pairs.Kind, fn func(pairs.Kind)) {
	if disp == nil {
		for _, k := range kinds {
			fn(k)
		}
		return
	}
	disp.ForJobs(ctx, len(kinds), func(worker, i int) {
		fn(kinds[i])
	})
}

func isContactKind(k pairs.Kind) bool {
	switch k {
	case pairs.KindContactConvex1, pairs.KindContactConvex2, pairs.KindContactConvex3, pairs.KindContactConvex4,
		pairs.KindContactNonConvex2, pairs.KindContactNonConvex3, pairs.KindContactNonConvex4,
		pairs.KindContactNonConvex5, pairs.KindContactNonConvex6, pairs.KindContactNonConvex7, pairs.KindContactNonConvex8:
		return true
	}
	return false
}

func prestepContacts(st *body.Store, dt float32, params Params, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*ContactDescription)
		PrestepContact(st, dt, params, a, b, d)
	}
}

func warmStartContacts(st *body.Store, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*ContactDescription)
		WarmStartContact(st, a, b, d)
	}
}

func iterateContacts(st *body.Store, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*ContactDescription)
		IterateContact(st, a, b, d)
	}
}

func prestepBallSockets(st *body.Store, dt float32, params Params, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*BallSocketDescription)
		PrestepBallSocket(st, dt, params, a, b, d)
	}
}

func warmStartBallSockets(st *body.Store, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*BallSocketDescription)
		WarmStartBallSocket(st, a, b, d)
	}
}

func iterateBallSockets(st *body.Store, tb *TypeBatch) {
	for i := 0; i < tb.Len(); i++ {
		a, b := tb.Bodies(i)
		d := tb.Data(i).(*BallSocketDescription)
		IterateBallSocket(st, a, b, d)
	}
}
