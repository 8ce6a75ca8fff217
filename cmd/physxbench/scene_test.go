// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package main

import (
	"context"
	"testing"

	"github.com/gazed/physx/body"
	"github.com/gazed/physx/config"
)

func testParams() sceneParams {
	return sceneParams{
		bodies:      5,
		seed:        7,
		radius:      0.5,
		friction:    0.4,
		groundTiles: 1,
	}
}

func TestBuildSceneAddsOneHandlePerDroppedBody(t *testing.T) {
	sim, dropped := buildScene(testParams(), config.Deterministic())
	if len(dropped) != 5 {
		t.Fatalf("expected 5 dropped handles, got %d", len(dropped))
	}
	for _, h := range dropped {
		if setIdx, ok := sim.Store().SetOf(h); !ok || setIdx != body.ActiveSet {
			t.Errorf("expected dropped body %v in ActiveSet, got set=%d ok=%v", h, setIdx, ok)
		}
	}
}

func TestBuildSceneIsReproducibleForAFixedSeed(t *testing.T) {
	params := testParams()
	simA, droppedA := buildScene(params, config.Deterministic())
	simB, droppedB := buildScene(params, config.Deterministic())

	for i := range droppedA {
		pa := simA.Store().Position(droppedA[i])
		pb := simB.Store().Position(droppedB[i])
		if pa != pb {
			t.Errorf("body %d: expected identical starting position for the same seed, got %v vs %v", i, pa, pb)
		}
	}
}

func TestDroppedSpheresFallTowardGround(t *testing.T) {
	sim, dropped := buildScene(testParams(), config.Deterministic())

	start := make(map[int]float32, len(dropped))
	for i, h := range dropped {
		start[i] = sim.Store().Position(h).Y
	}

	ctx := context.Background()
	for i := 0; i < 120; i++ {
		sim.Step(ctx, 1.0/60.0)
	}

	for i, h := range dropped {
		got := sim.Store().Position(h).Y
		if got >= start[i] {
			t.Errorf("body %d: expected to have fallen from %v, now at %v", i, start[i], got)
		}
	}
}
