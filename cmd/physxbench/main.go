// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Command physxbench runs a headless simulation scene for a fixed number
// of steps and reports per-run timing and final body state, the way a
// developer profiling the solver or checking for regressions would drive
// it from a terminal rather than from a host application.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gazed/physx/config"
)

var (
	flagBodies      int
	flagSteps       int
	flagDt          float64
	flagSeed        int64
	flagRadius      float64
	flagFriction    float64
	flagIterations  int
	flagGravity     float64
	flagGroundTiles int
	flagDeterministic bool
	flagHints       string
	flagJSON        bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "physxbench",
		Short: "Run a headless physx scene and report step timing",
		Long: `physxbench drops a column of spheres onto a bed of static spheres
and steps the simulation a fixed number of times, reporting wall-clock
duration and final body state. Useful for profiling the solver and
broadphase in isolation from any rendering or networking layer.`,
		RunE: runBench,
	}

	root.Flags().IntVar(&flagBodies, "bodies", 100, "number of dynamic spheres to drop")
	root.Flags().IntVar(&flagSteps, "steps", 300, "number of simulation steps to run")
	root.Flags().Float64Var(&flagDt, "dt", 1.0/60.0, "timestep in seconds")
	root.Flags().Int64Var(&flagSeed, "seed", 1, "seed for the scene's starting positions")
	root.Flags().Float64Var(&flagRadius, "radius", 0.5, "radius of each dropped sphere")
	root.Flags().Float64Var(&flagFriction, "friction", 0.4, "per-body friction coefficient")
	root.Flags().IntVar(&flagIterations, "iterations", 8, "solver iterations per step")
	root.Flags().Float64Var(&flagGravity, "gravity", -9.81, "gravity acceleration along Y")
	root.Flags().IntVar(&flagGroundTiles, "ground-tiles", 3, "number of static ground spheres")
	root.Flags().BoolVar(&flagDeterministic, "deterministic", false, "force single-threaded, in-order solve")
	root.Flags().StringVar(&flagHints, "hints", "", "path to a YAML allocation hints file")
	root.Flags().BoolVar(&flagJSON, "json", false, "emit the report as JSON instead of text")

	return root
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("physxbench failed", "error", err)
		os.Exit(1)
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	opts := []config.Option{
		config.Iterations(flagIterations),
		config.Gravity(0, float32(flagGravity), 0),
	}
	if flagDeterministic {
		opts = append(opts, config.Deterministic())
	}
	if flagHints != "" {
		hints, err := config.LoadHints(flagHints)
		if err != nil {
			return fmt.Errorf("physxbench: %w", err)
		}
		opts = append(opts, config.WithHints(hints))
	}

	params := sceneParams{
		bodies:      flagBodies,
		seed:        flagSeed,
		radius:      float32(flagRadius),
		friction:    float32(flagFriction),
		groundTiles: flagGroundTiles,
	}
	sim, dropped := buildScene(params, opts...)

	ctx := context.Background()
	dt := float32(flagDt)

	start := time.Now()
	for i := 0; i < flagSteps; i++ {
		sim.Step(ctx, dt)
	}
	elapsed := time.Since(start)

	asleep := 0
	for _, h := range dropped {
		if setIdx, ok := sim.Store().SetOf(h); ok && setIdx != 0 {
			asleep++
		}
	}

	report := benchReport{
		Bodies:         flagBodies,
		Steps:          flagSteps,
		Elapsed:        elapsed,
		StepsPerSecond: float64(flagSteps) / elapsed.Seconds(),
		BodiesAsleep:   asleep,
	}
	return writeReport(cmd, report)
}

type benchReport struct {
	Bodies         int           `json:"bodies"`
	Steps          int           `json:"steps"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	StepsPerSecond float64       `json:"steps_per_second"`
	BodiesAsleep   int           `json:"bodies_asleep"`
}

func writeReport(cmd *cobra.Command, r benchReport) error {
	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bodies=%d steps=%d elapsed=%s steps/sec=%.1f asleep=%d\n",
		r.Bodies, r.Steps, r.Elapsed, r.StepsPerSecond, r.BodiesAsleep)
	return nil
}
