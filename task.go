package flux

import "sync"

// CancelFunc politely requests early termination of a task or flow
// subscription. It is idempotent and safe to call at any time, including
// before the subscription has finished installing itself, and from any
// goroutine.
type CancelFunc func()

// Task is a one-shot asynchronous computation. Invoking it installs a
// success continuation and a failure continuation and returns a cancel
// handle. Exactly one of onSuccess/onFailure is eventually called, exactly
// once. Cancellation is advisory: a task may still succeed after having
// been cancelled.
type Task[T any] func(onSuccess func(T), onFailure func(error)) CancelFunc

// onceCancel wraps fn so repeated CancelFunc invocations only ever run it
// once, matching the idempotence invariant every combinator in this package
// relies on.
func onceCancel(fn func()) CancelFunc {
	var once sync.Once
	return func() { once.Do(fn) }
}

// noopCancel is returned by tasks that complete synchronously within the
// call to Subscribe and so have nothing left to cancel.
func noopCancel() CancelFunc { return func() {} }

// Succeed returns a task that completes immediately with v.
func Succeed[T any](v T) Task[T] {
	return func(onSuccess func(T), _ func(error)) CancelFunc {
		onSuccess(v)
		return noopCancel()
	}
}

// Fail returns a task that completes immediately with err.
func Fail[T any](err error) Task[T] {
	return func(_ func(T), onFailure func(error)) CancelFunc {
		onFailure(err)
		return noopCancel()
	}
}

// FromFunc adapts a plain Go function into a Task by running it on its own
// goroutine. Cancellation is advisory: fn is not interrupted, but a
// cancelled subscriber's onFailure/onSuccess is still called exactly once
// when fn returns. A panic in fn is recovered and surfaced as a failure
// wrapping ErrTaskPanicked.
func FromFunc[T any](fn func() (T, error)) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		go func() {
			var (
				result T
				err    error
			)

			func() {
				defer func() {
					if r := recover(); r != nil {
						err = newTaskPanicError(r)
					}
				}()
				result, err = fn()
			}()

			if err != nil {
				onFailure(err)
				return
			}
			onSuccess(result)
		}()
		return noopCancel()
	}
}

// Defer builds a Task lazily, from a factory invoked on every subscription.
// It is the idiomatic way to avoid accidentally sharing one task's
// in-flight state across multiple subscribers.
func Defer[T any](factory func() Task[T]) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		return factory()(onSuccess, onFailure)
	}
}

// Await subscribes to t and blocks the calling goroutine until it
// completes, returning its value or error. It is the entry point for
// driving a Task from ordinary (non-fiber) code, matching the "failed
// top-level task throws from its awaiter" user-visible behavior.
func Await[T any](t Task[T]) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	t(
		func(v T) { ch <- outcome{v: v} },
		func(err error) { ch <- outcome{err: err} },
	)
	o := <-ch
	return o.v, o.err
}
