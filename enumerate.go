package flux

import "sync"

// Enumerate returns a Discrete flow emitting the elements of coll in order.
// Each Take consumes one element and always notifies again, whether or not
// one remains: when none do, that extra notify drives one further Take
// which fires the terminator and reports errFlowDone, so onTerminate never
// runs nested inside the call that handed the caller its last real value.
// Cancellation mid-stream fails the flow immediately with ErrCancelled.
func Enumerate[T any](coll []T) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu        sync.Mutex
			idx       int
			cancelled bool
			finished  bool
			terminate sync.Once
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		take := func() (T, error) {
			mu.Lock()

			if cancelled {
				mu.Unlock()
				var zero T
				return zero, ErrCancelled
			}

			if idx >= len(coll) {
				already := finished
				finished = true
				mu.Unlock()
				if !already {
					finish(nil)
				}
				var zero T
				return zero, errFlowDone
			}

			v := coll[idx]
			idx++
			mu.Unlock()

			// onNotify must run with the lock released: a downstream
			// consumer's pendingGate may call back into Take re-entrantly,
			// on this same goroutine, before this call returns, and mu is
			// not reentrant.
			onNotify()
			return v, nil
		}

		cancel := func() {
			mu.Lock()
			// After a clean end the terminator has already run (possibly
			// still on the stack, if it is what cancels us).
			already := cancelled || finished
			cancelled = true
			mu.Unlock()
			if !already {
				finish(ErrCancelled)
			}
		}

		if len(coll) == 0 {
			finished = true
			finish(nil)
		} else {
			onNotify()
		}

		return newTransfer(take, cancel)
	}
}
