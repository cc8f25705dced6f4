package promise

import "github.com/Qchains/CPM-cli/scheduler"

// Deferred bundles a promise with its resolve and reject functions — the
// common shape needed when a promise must be created before the operation
// that will eventually settle it is known.
type Deferred struct {
	Promise *Promise
	Resolve ResolveFunc
	Reject  RejectFunc
}

// Defer constructs a Deferred backed by a new Pending promise.
func Defer(sched *scheduler.Scheduler, opts ...Option) Deferred {
	p, resolve, reject := New(sched, opts...)
	return Deferred{Promise: p, Resolve: resolve, Reject: reject}
}

// DeferDurable constructs a Deferred backed by a new Pending durable
// promise.
func DeferDurable(sched *scheduler.Scheduler, backing DurableBacking, id []byte, opts ...Option) Deferred {
	p, resolve, reject := NewDurable(sched, backing, id, opts...)
	return Deferred{Promise: p, Resolve: resolve, Reject: reject}
}
