package flux

// SP runs body as a sequential fiber on a single dedicated goroutine. body
// receives a Scope to observe cancellation between steps (check
// scope.Poll(), or select on scope.Done() around a blocking Await) and
// returns the block's result.
//
// Cancelling the returned Task closes the Scope; it does not forcibly abort
// body mid-step, since flux has no preemption primitive. A well-behaved body
// checks scope.Done() between steps, the usual cooperative contract around
// ctx.Done().
func SP[T any](body func(scope *Scope) (T, error)) Task[T] {
	scope := newScope()
	return spawn(scope, body)
}

// Park awaits t inside an SP body (the "?" operator in the block notation),
// but fails fast with ErrCancelled if scope is cancelled first. It is the
// idiomatic way to sequence child tasks inside an SP block without leaking
// a still-running child after cancellation.
func Park[T any](scope *Scope, t Task[T]) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	result := make(chan outcome, 1)
	cancel := t(
		func(v T) { result <- outcome{v: v} },
		func(err error) { result <- outcome{err: err} },
	)

	select {
	case o := <-result:
		return o.v, o.err
	case <-scope.Done():
		cancel()
		var zero T
		return zero, ErrCancelled
	}
}
