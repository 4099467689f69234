package flux

import "sync"

// Join subscribes to every task in t in subscription (listed) order. If all
// succeed, it completes with combine applied to their values in that same
// order, regardless of completion order. If any fails, the rest are
// cancelled and Join fails with that error — the first reported failure
// wins; later ones are discarded. With zero tasks, Join completes
// immediately with combine().
func Join[T, R any](combine func(...T) R, tasks ...Task[T]) Task[R] {
	return func(onSuccess func(R), onFailure func(error)) CancelFunc {
		if len(tasks) == 0 {
			onSuccess(combine())
			return noopCancel()
		}

		var (
			mu        sync.Mutex
			values    = make([]T, len(tasks))
			remaining = len(tasks)
			failed    bool
			cancels   = make([]CancelFunc, len(tasks))
		)

		cancelAll := func() {
			mu.Lock()
			cs := append([]CancelFunc(nil), cancels...)
			mu.Unlock()
			for _, c := range cs {
				if c != nil {
					c()
				}
			}
		}

		for i, t := range tasks {
			i, t := i, t
			c := t(
				func(v T) {
					mu.Lock()
					if failed {
						mu.Unlock()
						return
					}
					values[i] = v
					remaining--
					done := remaining == 0
					mu.Unlock()
					if done {
						onSuccess(combine(values...))
					}
				},
				func(err error) {
					mu.Lock()
					if failed {
						mu.Unlock()
						return
					}
					failed = true
					mu.Unlock()
					cancelAll()
					onFailure(newChildTaggedError(err, i))
				},
			)
			mu.Lock()
			cancels[i] = c
			lateCancel := failed
			mu.Unlock()
			if lateCancel {
				// A failure arrived before this child's cancel was stored.
				c()
			}
		}

		return onceCancel(cancelAll)
	}
}
