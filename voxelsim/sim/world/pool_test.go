package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Stop()

	var wg sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		pool.Spawn(func() {
			count.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if count.Load() != 100 {
		t.Errorf("Expected 100 tasks to run, got %d", count.Load())
	}
}

func TestWorkerPoolSpawnNeverBlocks(t *testing.T) {
	// One worker stuck on a task must not stall further Spawn calls
	pool := NewWorkerPool(1)
	defer pool.Stop()

	release := make(chan struct{})
	pool.Spawn(func() { <-release })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			pool.Spawn(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Spawn blocked while the worker was busy")
	}
	close(release)
}

func TestWorkerPoolStop(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Stop()
	// Idempotent, and Spawn after Stop is a no-op
	pool.Stop()
	pool.Spawn(func() {
		t.Error("Task spawned after Stop should not run")
	})
	time.Sleep(20 * time.Millisecond)
}
