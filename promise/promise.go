// Package promise implements the promise-based asynchronous runtime: a
// state machine with settled/pending semantics, Then-style chaining with
// callback scheduling through a microtask scheduler, and the combinators
// and deferred pattern built above it.
package promise

import (
	"sync"
	"sync/atomic"

	"github.com/Qchains/CPM-cli/internal/obslog"
	"github.com/Qchains/CPM-cli/scheduler"
)

// Result is the opaque, type-erased fulfillment value or rejection reason
// a promise settles with. The core never introspects it.
type Result = any

// State is a promise's lifecycle state. Transitions only go from Pending
// to a terminal state, and only once (the settlement latch, invariant I1).
type State int32

const (
	// Pending is the initial state of every promise.
	Pending State = iota
	// Fulfilled is the terminal state after a successful Resolve.
	Fulfilled
	// Rejected is the terminal state after Reject.
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ReactionFunc is a callback registered via Then: given the parent's
// settlement value and the user_context supplied to Then, it returns the
// value the chained promise should settle with.
type ReactionFunc func(value Result, context any) Result

// ResolveFunc fulfills a promise with a value. Calling it on an
// already-settled promise is a silent no-op, per the Promises/A+ rule.
type ResolveFunc func(Result)

// RejectFunc rejects a promise with a reason. Calling it on an
// already-settled promise is a silent no-op.
type RejectFunc func(Result)

// handler is a registered reaction: the callback pair from Then plus the
// chained promise whose settlement it determines.
type handler struct {
	onFulfilled ReactionFunc
	onRejected  ReactionFunc
	context     any
	target      *Promise
}

// durableInfo holds the durability backing wiring for a durable promise.
type durableInfo struct {
	backing   DurableBacking
	id        []byte
	payloadID PayloadIDFunc

	mu      sync.Mutex
	lastErr error
}

// Promise is an asynchronous cell holding a lifecycle State and a
// settlement Result. See package doc and spec §3/§4.2 for the full
// contract.
type Promise struct {
	// state is read lock-free by State/Value/Reason; mutated only under mu.
	state atomic.Int32

	mu sync.Mutex
	// result holds the fulfillment value or rejection reason once settled.
	result Result

	// h0 is the first registered reaction, embedded to avoid a slice
	// allocation for the common single-reaction case.
	h0     handler
	h0Used bool
	// handlers holds any reactions registered beyond the first.
	handlers []handler

	sched   *scheduler.Scheduler
	logger  obslog.Logger
	durable *durableInfo
}

func newPending(sched *scheduler.Scheduler, logger obslog.Logger) *Promise {
	p := &Promise{sched: sched, logger: logger}
	p.state.Store(int32(Pending))
	return p
}

// New creates a new Pending promise, returning it along with the resolve
// and reject functions that settle it. Reactions registered via Then are
// dispatched through sched.
func New(sched *scheduler.Scheduler, opts ...Option) (*Promise, ResolveFunc, RejectFunc) {
	c := resolveOptions(opts)
	p := newPending(sched, c.logger)
	return p, p.Resolve, p.Reject
}

// NewDurable creates a new Pending durable promise: every state-bearing
// write is flushed to backing before any reaction observes it (invariant
// I5). id identifies this promise within the backing.
func NewDurable(sched *scheduler.Scheduler, backing DurableBacking, id []byte, opts ...Option) (*Promise, ResolveFunc, RejectFunc) {
	c := resolveOptions(opts)
	p := newPending(sched, c.logger)
	p.durable = &durableInfo{backing: backing, id: id, payloadID: c.payloadID}
	return p, p.Resolve, p.Reject
}

// Resolved returns a promise pre-settled to Fulfilled(value).
func Resolved(sched *scheduler.Scheduler, value Result) *Promise {
	p := newPending(sched, obslog.Global())
	p.result = value
	p.state.Store(int32(Fulfilled))
	return p
}

// Rejected returns a promise pre-settled to Rejected(reason).
func Rejected(sched *scheduler.Scheduler, reason Result) *Promise {
	p := newPending(sched, obslog.Global())
	p.result = reason
	p.state.Store(int32(Rejected))
	return p
}

// State returns the current lifecycle state. Safe to call concurrently.
func (p *Promise) State() State {
	return State(p.state.Load())
}

// Value returns the fulfillment value, or nil if not Fulfilled.
func (p *Promise) Value() Result {
	if State(p.state.Load()) != Fulfilled {
		return nil
	}
	return p.result
}

// Reason returns the rejection reason, or nil if not Rejected.
func (p *Promise) Reason() Result {
	if State(p.state.Load()) != Rejected {
		return nil
	}
	return p.result
}

// DurabilityError returns the most recent error encountered persisting
// this promise's settlement, if this is a durable promise and persisting
// ever failed. A non-nil result means the promise's last settlement
// attempt left it Pending rather than transitioning (see
// DurabilityFailedError).
func (p *Promise) DurabilityError() error {
	if p.durable == nil {
		return nil
	}
	p.durable.mu.Lock()
	defer p.durable.mu.Unlock()
	return p.durable.lastErr
}

// Then registers handlers for this promise's settlement and returns a new
// chained promise. onFulfilled/onRejected may be nil, in which case the
// parent's settlement propagates to the chained promise verbatim
// (invariant I3).
func (p *Promise) Then(onFulfilled, onRejected ReactionFunc, context any) *Promise {
	child := newPending(p.sched, p.logger)
	p.addHandler(handler{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		context:     context,
		target:      child,
	})
	return child
}

// addHandler attaches a reaction. If the promise is already settled the
// reaction is scheduled as a microtask immediately (never run inline, per
// the non-reentrancy guarantee); if pending, it is queued for dispatch at
// settlement time.
func (p *Promise) addHandler(h handler) {
	st := State(p.state.Load())
	if st != Pending {
		p.scheduleHandler(h, st, p.result)
		return
	}

	p.mu.Lock()
	st = State(p.state.Load())
	if st != Pending {
		p.mu.Unlock()
		p.scheduleHandler(h, st, p.result)
		return
	}
	if !p.h0Used {
		p.h0 = h
		p.h0Used = true
	} else {
		p.handlers = append(p.handlers, h)
	}
	p.mu.Unlock()
}

// scheduleHandler enqueues a reaction dispatch as a microtask. Handlers
// always run asynchronously, even against an already-settled parent.
func (p *Promise) scheduleHandler(h handler, state State, result Result) {
	_ = p.sched.Submit(func(any) {
		dispatch(h, state, result)
	}, nil)
}

// dispatch runs a single reaction per the resolution procedure in §4.2: if
// a matching handler exists, its return value settles the chained promise;
// otherwise the parent's state propagates verbatim.
func dispatch(h handler, state State, result Result) {
	var fn ReactionFunc
	if state == Fulfilled {
		fn = h.onFulfilled
	} else {
		fn = h.onRejected
	}

	if fn == nil {
		if h.target == nil {
			return
		}
		if state == Fulfilled {
			h.target.Resolve(result)
		} else {
			h.target.Reject(result)
		}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if h.target != nil {
				h.target.Reject(PanicError{Value: r})
			}
		}
	}()

	res := fn(result, h.context)
	if h.target != nil {
		h.target.Resolve(res)
	}
}

// Resolve transitions the promise to Fulfilled(value) if it is still
// Pending; otherwise it is a no-op. If value is itself a *Promise, this
// promise adopts its eventual state (thenable adoption) instead of
// settling immediately. Resolving a promise with itself is rejected with
// an InvalidArgumentError to avoid an unresolvable adoption cycle.
func (p *Promise) Resolve(value Result) {
	if other, ok := value.(*Promise); ok {
		if other == p {
			p.Reject(&InvalidArgumentError{Message: "a promise cannot be resolved with itself"})
			return
		}
		other.addHandler(handler{
			onFulfilled: func(v Result, _ any) Result { p.Resolve(v); return nil },
			onRejected:  func(r Result, _ any) Result { p.Reject(r); return nil },
		})
		return
	}
	p.settle(Fulfilled, value)
}

// Reject transitions the promise to Rejected(reason) if it is still
// Pending; otherwise it is a no-op.
func (p *Promise) Reject(reason Result) {
	p.settle(Rejected, reason)
}

// settle performs the one-shot state transition, durability flush (when
// applicable) and reaction dispatch.
func (p *Promise) settle(state State, value Result) {
	p.mu.Lock()
	if State(p.state.Load()) != Pending {
		p.mu.Unlock()
		return
	}

	if p.durable != nil {
		payloadID := p.durable.payloadID(value)
		if err := p.durable.backing.Persist(p.durable.id, state, payloadID); err != nil {
			durErr := &DurabilityFailedError{Cause: err}
			p.durable.mu.Lock()
			p.durable.lastErr = durErr
			p.durable.mu.Unlock()
			p.mu.Unlock()
			p.logger.Log(obslog.Entry{
				Level:    obslog.LevelError,
				Category: "promise",
				Message:  "durability persist failed; promise remains pending",
				Err:      durErr,
			})
			return
		}
	}

	h0 := p.h0
	useH0 := p.h0Used
	handlers := p.handlers
	p.h0 = handler{}
	p.h0Used = false
	p.handlers = nil

	p.result = value
	p.state.Store(int32(state))
	p.mu.Unlock()

	if useH0 {
		p.scheduleHandler(h0, state, value)
	}
	for _, h := range handlers {
		p.scheduleHandler(h, state, value)
	}
}
