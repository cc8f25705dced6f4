// Package scheduler implements the microtask FIFO worker described by the
// core concurrency substrate: a single shared queue of deferred callback
// jobs drained by one or more worker goroutines.
//
// # Model
//
// Submission never blocks beyond its own critical section. Workers pop
// tasks one at a time and run them to completion; a task must not block
// waiting on another task scheduled through the same Scheduler, since the
// worker pool is bounded. Promise reaction dispatch (see package promise)
// satisfies this by construction: a reaction never waits on another
// reaction's microtask.
//
// # Usage
//
//	sched := scheduler.New(scheduler.WithWorkers(4))
//	sched.Start()
//	defer sched.Stop()
//
//	sched.Submit(func(data any) {
//	    fmt.Println("ran with", data)
//	}, "payload")
//
// Synchronous callers (bootstraps, tests) can avoid starting workers
// entirely and instead call Drain to run every queued task on the calling
// goroutine.
package scheduler
