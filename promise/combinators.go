package promise

import (
	"sync/atomic"

	"github.com/Qchains/CPM-cli/scheduler"
)

// All returns a promise that fulfills with the slice of results in input
// order once every input promise has fulfilled, or rejects with the reason
// of whichever input promise rejects first. Only the first rejection wins;
// later rejections and fulfillments among the remaining inputs are
// observed but do not affect the returned promise (invariant: at-most-one
// settlement, enforced here via a compare-and-swap guard rather than
// relying on the settlement latch of a promise no caller can reject
// twice).
//
// All([]) fulfills immediately with an empty slice.
func All(sched *scheduler.Scheduler, promises []*Promise) *Promise {
	out, resolve, reject := New(sched)

	if len(promises) == 0 {
		resolve([]Result{})
		return out
	}

	results := make([]Result, len(promises))
	var remaining atomic.Int64
	remaining.Store(int64(len(promises)))
	var settled atomic.Bool

	for i, p := range promises {
		i := i
		p.Then(
			func(v Result, _ any) Result {
				results[i] = v
				if remaining.Add(-1) == 0 && settled.CompareAndSwap(false, true) {
					resolve(results)
				}
				return nil
			},
			func(r Result, _ any) Result {
				if settled.CompareAndSwap(false, true) {
					reject(r)
				}
				return nil
			},
			nil,
		)
	}

	return out
}

// SettledStatus records whether a settled record fulfilled or rejected.
type SettledStatus int

const (
	// SettledFulfilled marks a record whose Value field holds the
	// fulfillment value.
	SettledFulfilled SettledStatus = iota
	// SettledRejected marks a record whose Reason field holds the
	// rejection reason.
	SettledRejected
)

// SettledRecord is one entry of an AllSettled result: exactly one of Value
// or Reason is meaningful, selected by Status.
type SettledRecord struct {
	Status SettledStatus
	Value  Result
	Reason Result
}

// AllSettled returns a promise that always fulfills, once every input
// promise has settled, with a []SettledRecord in input order — one record
// per input, recording its outcome without shortcutting on the first
// rejection. AllSettled never rejects.
//
// AllSettled([]) fulfills immediately with an empty slice.
func AllSettled(sched *scheduler.Scheduler, promises []*Promise) *Promise {
	out, resolve, _ := New(sched)

	if len(promises) == 0 {
		resolve([]SettledRecord{})
		return out
	}

	records := make([]SettledRecord, len(promises))
	var remaining atomic.Int64
	remaining.Store(int64(len(promises)))

	for i, p := range promises {
		i := i
		p.Then(
			func(v Result, _ any) Result {
				records[i] = SettledRecord{Status: SettledFulfilled, Value: v}
				if remaining.Add(-1) == 0 {
					resolve(records)
				}
				return nil
			},
			func(r Result, _ any) Result {
				records[i] = SettledRecord{Status: SettledRejected, Reason: r}
				if remaining.Add(-1) == 0 {
					resolve(records)
				}
				return nil
			},
			nil,
		)
	}

	return out
}
