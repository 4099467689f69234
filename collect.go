package flux

import (
	"errors"
	"sync"
)

// CollectTasks runs every task concurrently and waits for all of them,
// regardless of individual failures. If every task succeeds it succeeds with
// their values in completion order, not input order. If any fails it fails
// with an errors.Join of every failure, each tagged with its child index,
// and the successful values are not returned. It runs to completion rather
// than stopping on first error: stop-on-error fan-in is Join's job.
func CollectTasks[T any](tasks ...Task[T]) Task[[]T] {
	return func(onSuccess func([]T), onFailure func(error)) CancelFunc {
		n := len(tasks)
		if n == 0 {
			onSuccess(nil)
			return noopCancel()
		}

		var (
			mu      sync.Mutex
			values  []T
			errs    []error
			remain  = n
			cancels = make([]CancelFunc, n)
		)

		finish := func() {
			mu.Lock()
			vs := values
			es := errs
			mu.Unlock()
			if joined := errors.Join(es...); joined != nil {
				onFailure(joined)
				return
			}
			onSuccess(vs)
		}

		for i := 0; i < n; i++ {
			i := i
			cancels[i] = tasks[i](
				func(v T) {
					mu.Lock()
					values = append(values, v)
					remain--
					done := remain == 0
					mu.Unlock()
					if done {
						finish()
					}
				},
				func(err error) {
					mu.Lock()
					errs = append(errs, newChildTaggedError(err, i))
					remain--
					done := remain == 0
					mu.Unlock()
					if done {
						finish()
					}
				},
			)
		}

		return onceCancel(func() {
			mu.Lock()
			cs := append([]CancelFunc(nil), cancels...)
			mu.Unlock()
			for _, c := range cs {
				if c != nil {
					c()
				}
			}
		})
	}
}
