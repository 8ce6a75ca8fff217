package dispatch

import (
	"context"
	"sync"
	"testing"
)

func TestForJobsVisitsEveryJobExactlyOnce(t *testing.T) {
	d := &Dispatcher{Workers: 4}
	const n = 997 // prime, doesn't divide evenly across 4 workers
	var mu sync.Mutex
	seen := make([]bool, n)

	err := d.ForJobs(context.Background(), n, func(worker, job int) {
		mu.Lock()
		defer mu.Unlock()
		if seen[job] {
			t.Errorf("job %d visited more than once", job)
		}
		seen[job] = true
	})
	if err != nil {
		t.Fatalf("ForJobs returned error: %v", err)
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("job %d never visited", i)
		}
	}
}

func TestForJobsDeterministicRunsInOrderOnCallingGoroutine(t *testing.T) {
	d := &Dispatcher{Workers: 8, Deterministic: true}
	var order []int
	err := d.ForJobs(context.Background(), 10, func(worker, job int) {
		if worker != 0 {
			t.Fatalf("deterministic dispatch should only use worker 0, got %d", worker)
		}
		order = append(order, job)
	})
	if err != nil {
		t.Fatalf("ForJobs returned error: %v", err)
	}
	for i, j := range order {
		if i != j {
			t.Fatalf("expected in-order job visitation, got %v", order)
		}
	}
}

func TestForJobsZeroJobsIsNoOp(t *testing.T) {
	d := New()
	called := false
	err := d.ForJobs(context.Background(), 0, func(worker, job int) { called = true })
	if err != nil {
		t.Fatalf("ForJobs returned error: %v", err)
	}
	if called {
		t.Fatalf("fn should never be called for zero jobs")
	}
}
