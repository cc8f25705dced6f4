package scheduler

import "errors"

// ErrClosed is returned by Submit once Stop has been called.
var ErrClosed = errors.New("scheduler: closed")

// ErrQueueFull is returned by Submit when a WithMaxQueueDepth bound is
// configured and the queue is already at capacity. Submit never blocks to
// wait for room; callers that need backpressure should retry or shed load.
var ErrQueueFull = errors.New("scheduler: queue full")
