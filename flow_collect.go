package flux

import "sync"

// CollectFlow drains a Discrete flow to completion and returns every value
// it produced, in emission order.
func CollectFlow[T any](flow Flow[T]) Task[[]T] {
	return func(onSuccess func([]T), onFailure func(error)) CancelFunc {
		var (
			mu     sync.Mutex
			values []T
			xfer   Transfer[T]
			gate   pendingGate
		)

		process := func() {
			v, err := xfer.Take()
			if err != nil {
				return
			}
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		}
		onNotify := func() { gate.notify(process) }
		onTerminate := func(err error) {
			mu.Lock()
			vs := values
			mu.Unlock()
			if err != nil {
				onFailure(err)
				return
			}
			onSuccess(vs)
		}

		xfer = flow(onNotify, onTerminate)
		gate.arm(process)

		return onceCancel(func() {
			xfer.Cancel()
		})
	}
}

// ForEachFlow applies fn to every value a Discrete flow produces, in
// emission order, and resolves once the flow terminates (or fn returns an
// error, which cancels the upstream flow).
func ForEachFlow[T any](flow Flow[T], fn func(T) error) Task[struct{}] {
	return func(onSuccess func(struct{}), onFailure func(error)) CancelFunc {
		var (
			mu     sync.Mutex
			xfer   Transfer[T]
			gate   pendingGate
			failed bool
		)

		process := func() {
			v, err := xfer.Take()
			if err != nil {
				return
			}
			if err := fn(v); err != nil {
				mu.Lock()
				already := failed
				failed = true
				mu.Unlock()
				if !already {
					xfer.Cancel()
					onFailure(err)
				}
				return
			}
		}
		onNotify := func() { gate.notify(process) }
		onTerminate := func(err error) {
			mu.Lock()
			already := failed
			mu.Unlock()
			if already {
				return
			}
			if err != nil {
				onFailure(err)
				return
			}
			onSuccess(struct{}{})
		}

		xfer = flow(onNotify, onTerminate)
		gate.arm(process)

		return onceCancel(func() {
			xfer.Cancel()
		})
	}
}
