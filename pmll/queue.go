package pmll

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/Qchains/CPM-cli/internal/obslog"
	"github.com/Qchains/CPM-cli/promise"
	"github.com/Qchains/CPM-cli/scheduler"
)

// OpFunc is a unit of work submitted to a Queue. prev is the value handed
// down the queue's internal tail chain (almost always ignored); context
// is whatever was passed to Submit. A non-nil error is treated as the
// operation's rejection reason.
type OpFunc func(prev promise.Result, context any) (promise.Result, error)

// ErrorFunc is an optional recovery handler attached alongside an OpFunc.
// A nil error return recovers the operation (the outcome promise
// fulfills with the returned result); a non-nil error propagates as the
// outcome's rejection reason, wrapped in OperationFailedError.
type ErrorFunc func(reason error, context any) (promise.Result, error)

// Stats is a snapshot of a queue's monotonic operation counters.
type Stats struct {
	Completed int64
	Failed    int64
	Pending   int64
}

// Queue is a per-resource serialization anchor: operations submitted
// against the same Queue run at most one at a time, in submission order
// (invariant I4), regardless of how many scheduler workers are draining
// concurrently.
type Queue struct {
	sched      *scheduler.Scheduler
	resourceID string
	logger     obslog.Logger

	guard  sync.Mutex
	tail   *promise.Promise
	closed bool

	completed atomic.Int64
	failed    atomic.Int64
	pending   atomic.Int64

	durable promise.DurableBacking
}

// Create constructs a Queue anchored to resourceID. An empty resourceID
// is replaced with a generated identifier, matching the convention that
// every queue has a stable identity even when the caller doesn't supply
// one explicitly. The queue's tail starts pre-resolved, so the first
// submitted operation runs as soon as the scheduler reaches it.
func Create(sched *scheduler.Scheduler, resourceID string, opts ...Option) *Queue {
	c := resolveOptions(opts)
	if resourceID == "" {
		resourceID = uuid.NewString()
	}

	q := &Queue{
		sched:      sched,
		resourceID: resourceID,
		logger:     obslog.Global(),
		durable:    c.durable,
	}
	q.tail = promise.Resolved(sched, nil)

	if q.durable != nil {
		// Restore the counters persisted by a previous run before writing a
		// fresh snapshot, so they survive a restart.
		if _, payloadID, ok, err := q.durable.Load([]byte(resourceID)); err == nil && ok {
			prefix := "resource=" + resourceID + " "
			if s := string(payloadID); len(s) > len(prefix) && s[:len(prefix)] == prefix {
				var completed, failed int64
				if _, err := fmt.Sscanf(s[len(prefix):], "completed=%d failed=%d", &completed, &failed); err == nil {
					q.completed.Store(completed)
					q.failed.Store(failed)
				}
			}
		}
		q.persistSnapshot()
	}

	return q
}

// ResourceID returns the queue's identity.
func (q *Queue) ResourceID() string { return q.resourceID }

// Stats returns a snapshot of the queue's operation counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Pending:   q.pending.Load(),
	}
}

// Submit enqueues op to run after every previously submitted operation on
// this queue has run, and returns a promise that settles with op's
// outcome. onError, if non-nil, is given the chance to recover a
// rejection before it propagates. Submission order is preserved even
// under panics, timeouts, or op failures: one failing operation never
// stalls the ones behind it (Q3's resilient tail).
func (q *Queue) Submit(op OpFunc, onError ErrorFunc, context any) *promise.Promise {
	q.guard.Lock()
	if q.closed {
		q.guard.Unlock()
		return promise.Rejected(q.sched, &promise.QueueShuttingDownError{ResourceID: q.resourceID})
	}

	q.pending.Add(1)
	outcome, resolveOutcome, rejectOutcome := promise.New(q.sched)

	wrappedFulfilled := func(prev promise.Result, ctx any) promise.Result {
		q.runOperation(op, onError, prev, ctx, resolveOutcome, rejectOutcome)
		// The tail must always fulfill, regardless of op's outcome, so the
		// next submission is never stalled by this one's failure.
		return nil
	}
	wrappedRejected := func(reason promise.Result, ctx any) promise.Result {
		// The tail chain itself only ever fulfills (see wrappedFulfilled),
		// so in steady state this branch is unreachable; it exists for
		// defensive symmetry with an upstream tail that was never given a
		// chance to settle (e.g. a queue recovered into a rejected state).
		q.pending.Add(-1)
		q.failed.Add(1)
		rejectOutcome(&promise.OperationFailedError{Cause: asError(reason)})
		return nil
	}

	newTail := q.tail.Then(wrappedFulfilled, wrappedRejected, context)
	q.tail = newTail
	q.guard.Unlock()

	return outcome
}

// runOperation executes op (and, on failure, onError), settles the
// outcome promise, and updates the queue's counters. It never panics:
// a recovered panic is treated as the operation's failure.
func (q *Queue) runOperation(op OpFunc, onError ErrorFunc, prev promise.Result, ctx any, resolveOutcome promise.ResolveFunc, rejectOutcome promise.RejectFunc) {
	defer q.pending.Add(-1)

	result, err := q.callOp(op, prev, ctx)
	if err == nil {
		q.completed.Add(1)
		resolveOutcome(result)
		q.persistSnapshot()
		return
	}

	if onError != nil {
		recovered, recoverErr := q.callErrorOp(onError, err, ctx)
		if recoverErr == nil {
			q.completed.Add(1)
			resolveOutcome(recovered)
			q.persistSnapshot()
			return
		}
		err = recoverErr
	}

	q.failed.Add(1)
	rejectOutcome(&promise.OperationFailedError{Cause: err})
	q.persistSnapshot()
}

func (q *Queue) callOp(op OpFunc, prev promise.Result, ctx any) (result promise.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = promise.PanicError{Value: r}
		}
	}()
	return op(prev, ctx)
}

func (q *Queue) callErrorOp(onError ErrorFunc, reason error, ctx any) (result promise.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = promise.PanicError{Value: r}
		}
	}()
	return onError(reason, ctx)
}

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}

// persistSnapshot writes the queue's identity and current counters to its
// durability backing, when configured. The backing's storage layout is
// opaque to this package; the counters are encoded into the payload
// identifier it's handed.
func (q *Queue) persistSnapshot() {
	if q.durable == nil {
		return
	}
	stats := q.Stats()
	payloadID := []byte(fmt.Sprintf("resource=%s completed=%d failed=%d", q.resourceID, stats.Completed, stats.Failed))
	if err := q.durable.Persist([]byte(q.resourceID), promise.Fulfilled, payloadID); err != nil {
		q.logger.Log(obslog.Entry{
			Level:    obslog.LevelError,
			Category: "pmll",
			Resource: q.resourceID,
			Message:  "failed to persist queue snapshot",
			Err:      err,
		})
	}
}

// Flush submits a no-op operation and waits for it — and every operation
// submitted before it — to settle, then polls until the queue is fully
// quiescent (pending == 0), using jittered exponential backoff rather
// than a busy loop. It returns a TimeoutError if timeout elapses first.
func (q *Queue) Flush(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	done := make(chan struct{})
	q.Submit(func(prev promise.Result, _ any) (promise.Result, error) {
		return nil, nil
	}, nil, nil).Then(
		func(promise.Result, any) promise.Result { close(done); return nil },
		func(promise.Result, any) promise.Result { close(done); return nil },
		nil,
	)

	select {
	case <-done:
	case <-time.After(time.Until(deadline)):
		return &promise.TimeoutError{Message: fmt.Sprintf("flush: no-op operation on %q did not settle before timeout", q.resourceID)}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.Reset()

	for {
		if q.Stats().Pending == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return &promise.TimeoutError{Message: fmt.Sprintf("flush: queue %q did not reach quiescence before timeout", q.resourceID)}
		}
		time.Sleep(b.NextBackOff())
	}
}

// Free waits (bounded by timeout) for the queue to reach quiescence and
// then marks it closed: subsequent Submit calls are rejected with
// QueueShuttingDownError. Free does not release durability storage; the
// backing, if any, outlives the Queue value.
func (q *Queue) Free(timeout time.Duration) error {
	err := q.Flush(timeout)

	q.guard.Lock()
	q.closed = true
	q.guard.Unlock()

	return err
}
