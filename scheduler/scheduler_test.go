package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitDrainFIFO(t *testing.T) {
	s := New()

	var log []int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		i := i
		if err := s.Submit(func(any) {
			mu.Lock()
			log = append(log, i)
			mu.Unlock()
		}, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	s.Drain()

	mu.Lock()
	defer mu.Unlock()
	if len(log) != 5 {
		t.Fatalf("expected 5 tasks to run, got %d", len(log))
	}
	for i, v := range log {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", log)
		}
	}
}

func TestRunOneReturnsFalseWhenEmpty(t *testing.T) {
	s := New()
	if s.RunOne() {
		t.Fatalf("expected RunOne to return false on empty queue")
	}
}

func TestStartStopDrainsConcurrently(t *testing.T) {
	s := New(WithWorkers(4))
	s.Start()
	defer s.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := s.Submit(func(any) {
			count.Add(1)
			wg.Done()
		}, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for tasks, ran %d/%d", count.Load(), n)
	}

	if count.Load() != n {
		t.Fatalf("expected %d tasks run, got %d", n, count.Load())
	}
}

func TestSubmitAfterStopReturnsErrClosed(t *testing.T) {
	s := New(WithWorkers(1))
	s.Start()
	s.Stop()

	if err := s.Submit(func(any) {}, nil); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestStopDropsQueuedTasksWithoutPartialExecution(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 1)

	// Never started: tasks sit in the queue until Stop drops them.
	if err := s.Submit(func(any) { ran <- struct{}{} }, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.Stop()

	select {
	case <-ran:
		t.Fatalf("task should have been dropped, not executed")
	default:
	}
	if s.Len() != 0 {
		t.Fatalf("expected queue to be empty after Stop, got %d", s.Len())
	}
}

func TestWithMaxQueueDepthBackpressure(t *testing.T) {
	s := New(WithMaxQueueDepth(2))

	if err := s.Submit(func(any) {}, nil); err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	if err := s.Submit(func(any) {}, nil); err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	if err := s.Submit(func(any) {}, nil); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// Popping one task frees a slot for the next Submit.
	if !s.RunOne() {
		t.Fatalf("expected a task to run")
	}
	if err := s.Submit(func(any) {}, nil); err != nil {
		t.Fatalf("Submit after RunOne: %v", err)
	}
}

func TestPanicInTaskDoesNotStopDraining(t *testing.T) {
	s := New()

	if err := s.Submit(func(any) { panic("boom") }, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var ran bool
	if err := s.Submit(func(any) { ran = true }, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.Drain()

	if !ran {
		t.Fatalf("expected the second task to run despite the first panicking")
	}
}
