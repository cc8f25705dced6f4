package promise

import "github.com/Qchains/CPM-cli/scheduler"

// NodeCallback is the fixed trampoline callback shape FromNodeStyle hands
// to start: an error-first result pair plus a context value that start
// supplies for correlation. The trampoline ignores the context argument.
type NodeCallback func(err error, result Result, context any)

// FromNodeStyle runs start on its own goroutine, trampolining its
// error-first callback into promise settlement: a non-nil err rejects the
// returned promise, otherwise result fulfills it. A panic inside start
// (before it calls back) rejects the returned promise with a PanicError
// rather than crashing the goroutine.
//
// start must call its callback exactly once; further calls are ignored by
// virtue of the settlement latch on the returned promise.
//
// The context argument is not passed to start and is not used by
// FromNodeStyle; a starter that needs it captures it in its closure.
func FromNodeStyle(sched *scheduler.Scheduler, context any, start func(cb NodeCallback)) *Promise {
	p, resolve, reject := New(sched)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(PanicError{Value: r})
			}
		}()
		start(func(err error, result Result, ctx any) {
			if err != nil {
				reject(err)
				return
			}
			resolve(result)
		})
	}()

	return p
}
