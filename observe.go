package flux

import "sync"

// Subject is an external, non-backpressured value source: on subscription
// it is handed an event function to call (from any goroutine) whenever a
// new value occurs, and it returns a cleanup thunk invoked on cancellation.
type Subject[T any] func(event func(T) error) (cleanup func())

// Observe returns a Discrete flow wrapping subject. Calling event while a
// previously emitted value is still pending transfer returns an
// *OverflowError: non-backpressured subjects must not overflow. After
// cancellation, event becomes a no-op (returns nil without notifying).
func Observe[T any](subject Subject[T]) Flow[T] {
	return func(onNotify func(), onTerminate func(error)) Transfer[T] {
		var (
			mu        sync.Mutex
			pending   T
			hasValue  bool
			done      bool
			terminate sync.Once
		)

		finish := func(err error) { terminate.Do(func() { onTerminate(err) }) }

		event := func(v T) error {
			mu.Lock()
			if done {
				mu.Unlock()
				return nil
			}
			if hasValue {
				mu.Unlock()
				return &OverflowError{Reason: "observe: event called while a value is still pending transfer"}
			}
			pending = v
			hasValue = true
			mu.Unlock()
			onNotify()
			return nil
		}

		cleanup := subject(event)

		take := func() (T, error) {
			mu.Lock()
			defer mu.Unlock()
			if !hasValue {
				var zero T
				return zero, &ProtocolViolationError{Reason: "observe: Take called without a pending notification"}
			}
			v := pending
			hasValue = false
			return v, nil
		}

		cancel := func() {
			mu.Lock()
			already := done
			done = true
			mu.Unlock()
			if !already {
				if cleanup != nil {
					cleanup()
				}
				finish(nil)
			}
		}

		return newTransfer(take, cancel)
	}
}
