package flux

import "sync"

// Race subscribes to every task in t in listed order. The first success
// cancels the rest and wins. If all fail, Race fails with a *RaceError
// aggregating every child error in subscription order. With zero tasks,
// Race fails immediately with an empty *RaceError.
func Race[T any](tasks ...Task[T]) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		if len(tasks) == 0 {
			onFailure(&RaceError{})
			return noopCancel()
		}

		var (
			mu        sync.Mutex
			done      bool
			errs      = make([]error, len(tasks))
			remaining = len(tasks)
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
					if done {
						mu.Unlock()
						return
					}
					done = true
					mu.Unlock()
					cancelAll()
					onSuccess(v)
				},
				func(err error) {
					mu.Lock()
					if done {
						mu.Unlock()
						return
					}
					errs[i] = err
					remaining--
					allFailed := remaining == 0
					mu.Unlock()
					if allFailed {
						mu.Lock()
						alreadyDone := done
						done = true
						mu.Unlock()
						if !alreadyDone {
							onFailure(&RaceError{Errors: errs})
						}
					}
				},
			)
			mu.Lock()
			cancels[i] = c
			lateCancel := done
			mu.Unlock()
			if lateCancel {
				// A winner arrived before this child's cancel was stored.
				c()
			}
		}

		return onceCancel(cancelAll)
	}
}
