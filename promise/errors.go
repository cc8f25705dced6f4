package promise

import "fmt"

// InvalidArgumentError reports a null required input or other API misuse,
// such as resolving a promise with itself (a thenable adoption cycle).
type InvalidArgumentError struct {
	Message string
	Cause   error
}

func (e *InvalidArgumentError) Error() string {
	if e.Message == "" {
		return "promise: invalid argument"
	}
	return "promise: invalid argument: " + e.Message
}

func (e *InvalidArgumentError) Unwrap() error { return e.Cause }

// AllocationFailedError reports that growing a reaction queue or allocating
// a scheduler task failed.
type AllocationFailedError struct {
	Message string
	Cause   error
}

func (e *AllocationFailedError) Error() string {
	if e.Message == "" {
		return "promise: allocation failed"
	}
	return "promise: allocation failed: " + e.Message
}

func (e *AllocationFailedError) Unwrap() error { return e.Cause }

// AlreadySettledError is reserved for deferred-layer misuse (e.g. a caller
// that explicitly wants an error rather than the Promises/A+ silent no-op
// when settling an already-terminal promise). The core itself never
// returns this from Resolve/Reject, which are no-ops past the first
// settlement per the settlement latch invariant.
type AlreadySettledError struct {
	Message string
}

func (e *AlreadySettledError) Error() string {
	if e.Message == "" {
		return "promise: already settled"
	}
	return "promise: already settled: " + e.Message
}

// QueueShuttingDownError reports that an operation was submitted to a
// hardened resource queue that is being freed.
type QueueShuttingDownError struct {
	ResourceID string
}

func (e *QueueShuttingDownError) Error() string {
	return fmt.Sprintf("promise: queue %q is shutting down", e.ResourceID)
}

// OperationFailedError wraps a rejection that an operation's on_error
// handler declined to recover from.
type OperationFailedError struct {
	Cause error
}

func (e *OperationFailedError) Error() string {
	if e.Cause == nil {
		return "promise: operation failed"
	}
	return "promise: operation failed: " + e.Cause.Error()
}

func (e *OperationFailedError) Unwrap() error { return e.Cause }

// TimeoutError reports that flush or a user-built timeout combinator
// exceeded its bound.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "promise: timed out"
	}
	return "promise: timed out: " + e.Message
}

// DurabilityFailedError reports that a durable promise's state could not be
// made durable. The promise stays Pending; the fault is reported via the
// promise that was attempting to settle.
type DurabilityFailedError struct {
	ResourceID string
	Cause      error
}

func (e *DurabilityFailedError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("promise: durability failed: %v", e.Cause)
	}
	return fmt.Sprintf("promise: durability failed for %q: %v", e.ResourceID, e.Cause)
}

func (e *DurabilityFailedError) Unwrap() error { return e.Cause }

// PanicError wraps a panic value recovered from a reaction callback or a
// FromNodeStyle starter goroutine. Reaction callbacks are expected to
// return normally (see the core's non-goal around foreign-callback
// exception safety), but a recovered panic still settles the affected
// promise rather than crashing the scheduler worker.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("promise: handler panicked: %v", e.Value)
}
