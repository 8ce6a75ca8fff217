// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package config reduces the simulation constructor's API footprint using
// functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds attributes that can be set before the simulation starts
// stepping.
type Config struct {
	SolverIterations int     // K in prestep/warm-start/iterate/integrate; default 8
	MaximumRecovery  float32 // bias velocity clamp, m/s
	Gravity          [3]float32
	Deterministic    bool // force single-threaded, in-order solve
	Hints            AllocationHints
}

// defaults provides reasonable values so a simulation runs even if no
// option is set.
var defaults = Config{
	SolverIterations: 8,
	MaximumRecovery:  4.0,
	Gravity:          [3]float32{0, -9.81, 0},
	Deterministic:    false,
	Hints:            defaultHints,
}

// Option defines an optional simulation attribute.
//
//	sim := physx.New(testers, reg, logger,
//	    config.Iterations(12),
//	    config.Gravity(0, -9.81, 0),
//	    config.Deterministic(),
//	)
type Option func(*Config)

// New builds a Config from defaults overridden by opts, in order.
func New(opts ...Option) Config {
	c := defaults
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Iterations overrides the solver's per-step iteration count.
func Iterations(k int) Option {
	return func(c *Config) {
		if k > 0 {
			c.SolverIterations = k
		}
	}
}

// MaximumRecoveryVelocity overrides the bias velocity clamp used to
// prevent explosive correction of deep penetrations.
func MaximumRecoveryVelocity(v float32) Option {
	return func(c *Config) { c.MaximumRecovery = v }
}

// Gravity overrides the default per-body gravity vector applied by the
// pose integrator's velocity callback.
func Gravity(x, y, z float32) Option {
	return func(c *Config) { c.Gravity = [3]float32{x, y, z} }
}

// Deterministic forces a single-threaded, in-order solve regardless of the
// configured dispatcher, for reproducible test runs.
func Deterministic() Option {
	return func(c *Config) { c.Deterministic = true }
}

// WithHints overrides the default allocation hints directly.
func WithHints(h AllocationHints) Option {
	return func(c *Config) { c.Hints = h }
}

// AllocationHints externalizes initial-capacity estimates so a host
// application can tune pool/store pre-sizing without a code change.
type AllocationHints struct {
	InitialBodies      int `yaml:"initial_bodies"`
	InitialStatics     int `yaml:"initial_statics"`
	InitialConstraints int `yaml:"initial_constraints"`
	PoolBlockBytes     int `yaml:"pool_block_bytes"`
}

var defaultHints = AllocationHints{
	InitialBodies:      1024,
	InitialStatics:     256,
	InitialConstraints: 2048,
	PoolBlockBytes:     1 << 16,
}

// LoadHints reads YAML-described AllocationHints from path. The file is
// decoded over the default hints, so any field it leaves unset keeps its
// default value.
func LoadHints(path string) (AllocationHints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AllocationHints{}, fmt.Errorf("config: reading hints file: %w", err)
	}
	h := defaultHints
	if err := yaml.Unmarshal(data, &h); err != nil {
		return AllocationHints{}, fmt.Errorf("config: parsing hints yaml: %w", err)
	}
	return h, nil
}
