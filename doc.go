// Package flux implements a functional reactive concurrency runtime: one-shot
// asynchronous computations ("tasks") and backpressured, cancellable value
// streams ("flows") under a small set of composable primitives.
//
// Core contracts
//
//	Task[T]: subscribe with a success and a failure continuation; get back a
//	cancel handle. Exactly one continuation is eventually called.
//
//	Flow[T]: subscribe with a notifier and a terminator callback; get back a
//	Transfer[T] that both yields the pending value (or error) and cancels.
//
// Composition
//
// Tasks compose with Join, Race, Attempt, Absolve, Timeout, Compel. Flows
// compose with Transform, Integrate, Relieve, Buffer, Zip, Latest, Sample,
// Gather. SP and AP are structured control blocks: SP runs a sequential
// fiber that parks on tasks; AP runs a fiber that forks on flows (concat,
// switch, or gather) and itself behaves as a Flow.
//
// Coordination primitives (DataflowVar, Mailbox, Rendezvous, Semaphore) and
// the Reactor (a cycle-tolerant scheduler for a graph of publishers) round
// out the runtime.
//
// Cancellation is cooperative, idempotent, and always resolves into exactly
// one terminal event. Nothing in this package blocks a goroutine except at
// the documented suspension points; callbacks may arrive from arbitrary
// goroutines and must be safe to invoke re-entrantly.
package flux
