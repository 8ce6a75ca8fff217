// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunBenchProducesTextReport(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--bodies", "3", "--steps", "10", "--deterministic"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "bodies=3") || !strings.Contains(got, "steps=10") {
		t.Errorf("expected report to mention bodies=3 and steps=10, got %q", got)
	}
}

func TestRunBenchProducesJSONReport(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--bodies", "2", "--steps", "5", "--deterministic", "--json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	var report benchReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("expected valid JSON output, got error %v for %q", err, out.String())
	}
	if report.Bodies != 2 || report.Steps != 5 {
		t.Errorf("expected bodies=2 steps=5, got %+v", report)
	}
}

func TestRunBenchRejectsUnreadableHintsFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--hints", "/nonexistent/path/hints.yaml"})

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for an unreadable hints file")
	}
}
