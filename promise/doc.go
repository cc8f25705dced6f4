// Package promise implements an asynchronous promise runtime atop the
// scheduler package's microtask queue: Pending/Fulfilled/Rejected states,
// one-shot settlement, Then-style chaining with thenable adoption,
// combinators (All, AllSettled), a Deferred convenience type, an
// error-first trampoline (FromNodeStyle) for adapting callback-based
// operations, and an optional durability contract for promises whose
// settlement must survive a process restart.
package promise
