package promise

import (
	"sync"
	"testing"
	"time"

	"github.com/Qchains/CPM-cli/scheduler"
)

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(scheduler.WithWorkers(2))
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestResolveFulfillsPendingPromise(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, _ := New(s)

	var got Result
	done := make(chan struct{})
	p.Then(func(v Result, _ any) Result {
		got = v
		close(done)
		return nil
	}, nil, nil)

	resolve("hello")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fulfillment reaction")
	}

	if got != "hello" {
		t.Fatalf("expected %q, got %v", "hello", got)
	}
	if p.State() != Fulfilled {
		t.Fatalf("expected Fulfilled, got %v", p.State())
	}
}

func TestSecondSettlementIsNoOp(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, reject := New(s)

	resolve("first")
	reject("second")

	if p.State() != Fulfilled {
		t.Fatalf("expected state to remain Fulfilled, got %v", p.State())
	}
	if p.Value() != "first" {
		t.Fatalf("expected value %q, got %v", "first", p.Value())
	}
}

func TestThenOnAlreadySettledSchedulesAsynchronously(t *testing.T) {
	// No workers are started, so a reaction can only run inline or through
	// the explicit Drain below.
	s := scheduler.New()
	p, resolve, _ := New(s)
	resolve(42)

	var ran bool
	var mu sync.Mutex
	done := make(chan struct{})
	p.Then(func(v Result, _ any) Result {
		mu.Lock()
		ran = true
		mu.Unlock()
		close(done)
		return nil
	}, nil, nil)

	// Then must never invoke the handler inline, even against an
	// already-settled promise.
	mu.Lock()
	inlineRan := ran
	mu.Unlock()
	if inlineRan {
		t.Fatal("handler ran inline instead of being scheduled as a microtask")
	}

	s.Drain()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for scheduled reaction")
	}
}

func TestThenChainsValueThroughFulfillment(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, _ := New(s)

	done := make(chan Result, 1)
	p.Then(func(v Result, _ any) Result {
		return v.(int) * 2
	}, nil, nil).Then(func(v Result, _ any) Result {
		done <- v
		return nil
	}, nil, nil)

	resolve(21)

	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("expected 42, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chained result")
	}
}

func TestThenPropagatesRejectionWithNilOnRejected(t *testing.T) {
	s := newTestScheduler(t)
	p, _, reject := New(s)

	done := make(chan Result, 1)
	p.Then(func(v Result, _ any) Result {
		t.Fatal("onFulfilled should not run for a rejected promise")
		return nil
	}, nil, nil).Then(nil, func(r Result, _ any) Result {
		done <- r
		return nil
	}, nil)

	reject("boom")

	select {
	case r := <-done:
		if r != "boom" {
			t.Fatalf("expected propagated reason %q, got %v", "boom", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for propagated rejection")
	}
}

func TestResolveWithSelfIsRejected(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, _ := New(s)

	done := make(chan Result, 1)
	p.Then(nil, func(r Result, _ any) Result {
		done <- r
		return nil
	}, nil)

	resolve(p)

	select {
	case r := <-done:
		if _, ok := r.(*InvalidArgumentError); !ok {
			t.Fatalf("expected *InvalidArgumentError, got %T", r)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for self-resolution rejection")
	}
}

func TestResolveWithThenableAdoptsItsEventualState(t *testing.T) {
	s := newTestScheduler(t)
	inner, innerResolve, _ := New(s)
	outer, outerResolve, _ := New(s)

	done := make(chan Result, 1)
	outer.Then(func(v Result, _ any) Result {
		done <- v
		return nil
	}, nil, nil)

	outerResolve(inner)
	innerResolve("adopted")

	select {
	case v := <-done:
		if v != "adopted" {
			t.Fatalf("expected %q, got %v", "adopted", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for adoption")
	}
}

func TestHandlerPanicRejectsChainWithPanicError(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, _ := New(s)

	done := make(chan Result, 1)
	p.Then(func(v Result, _ any) Result {
		panic("handler boom")
	}, nil, nil).Then(nil, func(r Result, _ any) Result {
		done <- r
		return nil
	}, nil)

	resolve(nil)

	select {
	case r := <-done:
		pe, ok := r.(PanicError)
		if !ok {
			t.Fatalf("expected PanicError, got %T", r)
		}
		if pe.Value != "handler boom" {
			t.Fatalf("expected panic value %q, got %v", "handler boom", pe.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for panic to settle the chain")
	}
}

func TestResolvedAndRejectedAreAlreadySettled(t *testing.T) {
	s := newTestScheduler(t)

	f := Resolved(s, "done")
	if f.State() != Fulfilled || f.Value() != "done" {
		t.Fatalf("Resolved promise not pre-settled correctly: state=%v value=%v", f.State(), f.Value())
	}

	r := Rejected(s, "nope")
	if r.State() != Rejected || r.Reason() != "nope" {
		t.Fatalf("Rejected promise not pre-settled correctly: state=%v reason=%v", r.State(), r.Reason())
	}
}

func TestContextThreadsThroughThen(t *testing.T) {
	s := newTestScheduler(t)
	p, resolve, _ := New(s)

	type ctxKey struct{ n int }
	done := make(chan any, 1)
	p.Then(func(v Result, ctx any) Result {
		done <- ctx
		return nil
	}, nil, ctxKey{n: 7})

	resolve(nil)

	select {
	case ctx := <-done:
		if ctx.(ctxKey).n != 7 {
			t.Fatalf("expected context to thread through, got %v", ctx)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reaction")
	}
}
