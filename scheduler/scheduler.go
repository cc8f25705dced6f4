package scheduler

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Qchains/CPM-cli/internal/obslog"
)

// Task is a deferred unit of work: a function paired with the argument it
// closed over at submission time.
type Task struct {
	Fn         func(any)
	Data       any
	EnqueuedAt time.Time
}

// Scheduler is a FIFO queue of Task values drained by worker goroutines.
// The zero value is not usable; construct with New.
//
// Scheduler is safe for concurrent use: Submit may be called from any
// goroutine, and RunOne/Drain may be called concurrently with running
// workers (useful for synchronous bootstraps that want to help drain the
// queue on the calling goroutine).
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	closed  bool
	started bool

	workers int
	wg      sync.WaitGroup

	// sem bounds queue depth when configured via WithMaxQueueDepth; nil
	// means unbounded. A unit is held for every queued task and released
	// when the task is popped, so Acquire failure means the queue is full.
	sem *semaphore.Weighted

	logger obslog.Logger

	latencyMu sync.Mutex
	latency   *latencyTracker
}

// New constructs a Scheduler. It does not start any workers; call Start to
// begin draining concurrently, or drive the queue synchronously with Drain
// / RunOne.
func New(opts ...Option) *Scheduler {
	c := resolveOptions(opts)
	s := &Scheduler{
		workers: c.workers,
		logger:  c.logger,
		latency: newLatencyTracker(),
	}
	s.cond = sync.NewCond(&s.mu)
	if c.maxQueueDepth > 0 {
		s.sem = semaphore.NewWeighted(c.maxQueueDepth)
	}
	return s
}

// Submit appends a task to the queue and wakes one waiting worker. It never
// blocks beyond its own critical section: if a queue-depth bound is
// configured and already saturated, Submit returns ErrQueueFull rather than
// waiting for room. Submitting after Stop returns ErrClosed.
func (s *Scheduler) Submit(fn func(any), data any) error {
	if s.sem != nil && !s.sem.TryAcquire(1) {
		return ErrQueueFull
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if s.sem != nil {
			s.sem.Release(1)
		}
		return ErrClosed
	}
	s.queue = append(s.queue, Task{Fn: fn, Data: data, EnqueuedAt: time.Now()})
	s.mu.Unlock()

	s.cond.Signal()
	return nil
}

// popLocked removes and returns the head of the queue. Caller must hold mu.
func (s *Scheduler) popLocked() (Task, bool) {
	if len(s.queue) == 0 {
		return Task{}, false
	}
	t := s.queue[0]
	s.queue[0] = Task{} // drop the reference so the backing array doesn't pin it
	s.queue = s.queue[1:]
	return t, true
}

// RunOne pops and executes a single task, returning whether one was run.
// Safe to call concurrently with Start'd workers or other RunOne/Drain
// callers; the queue's mutex serializes pops.
func (s *Scheduler) RunOne() bool {
	s.mu.Lock()
	t, ok := s.popLocked()
	s.mu.Unlock()
	if !ok {
		return false
	}
	if s.sem != nil {
		s.sem.Release(1)
	}
	s.run(t)
	return true
}

// Drain runs RunOne until the queue is empty.
func (s *Scheduler) Drain() {
	for s.RunOne() {
	}
}

// run executes a task's function, recovering a panic into a logged error so
// one failing task never takes down a worker goroutine.
func (s *Scheduler) run(t Task) {
	if !t.EnqueuedAt.IsZero() {
		s.latencyMu.Lock()
		s.latency.observe(time.Since(t.EnqueuedAt).Seconds())
		s.latencyMu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Log(obslog.Entry{
				Level:    obslog.LevelError,
				Category: "scheduler",
				Message:  "task panicked",
				Context:  map[string]any{"panic": r},
			})
		}
	}()
	t.Fn(t.Data)
}

// Start spins up the configured number of worker goroutines. Calling Start
// twice without an intervening Stop is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.closed = false
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
}

// workerLoop is the body of each Start'd worker goroutine: wait for a task
// or shutdown, pop, run, repeat.
func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		t, ok := s.popLocked()
		s.mu.Unlock()

		if !ok {
			// Queue empty and closed: nothing left to run.
			return
		}
		if s.sem != nil {
			s.sem.Release(1)
		}
		s.run(t)
	}
}

// Stop signals every worker to exit and waits for them to drain in-flight
// tasks. Tasks still queued at the moment Stop is called are dropped, but
// no task is ever partially executed. After Stop returns, Submit fails with
// ErrClosed until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	s.closed = true
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()
	if s.sem != nil && dropped > 0 {
		s.sem.Release(int64(dropped))
	}

	s.cond.Broadcast()
	if wasStarted {
		s.wg.Wait()
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Log(obslog.Entry{
			Level:    obslog.LevelWarn,
			Category: "scheduler",
			Message:  "dropped queued tasks on stop",
			Context:  map[string]any{"dropped": dropped},
		})
	}
}

// Len returns the number of tasks currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// LatencyStats returns a snapshot of queue-wait latency (the time between
// Submit and dispatch) observed so far, as streaming P50/P95/P99
// estimates.
func (s *Scheduler) LatencyStats() LatencyStats {
	s.latencyMu.Lock()
	defer s.latencyMu.Unlock()
	return s.latency.snapshot()
}
