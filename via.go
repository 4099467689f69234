package flux

import "github.com/ygrebnov/flux/executor"

// Via returns a task that schedules thunk on pool, completing with its
// return value or failing with its panic (recovered and wrapped). If
// cancelled before thunk has started running on the executor, the
// submission is aborted and the task fails with ErrCancelled without ever
// invoking thunk.
func Via[T any](pool executor.Pool, thunk func() (T, error)) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		run := func() {
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
				result, err = thunk()
			}()

			if err != nil {
				onFailure(err)
				return
			}
			onSuccess(result)
		}

		aborted := func() { onFailure(ErrCancelled) }

		execCancel := pool.Submit(run, aborted)
		return onceCancel(func() { execCancel() })
	}
}

// ViaBlocking schedules thunk on the shared blocking executor.
func ViaBlocking[T any](thunk func() (T, error)) Task[T] {
	return Via(executor.Blocking(), thunk)
}

// ViaCPU schedules thunk on the shared CPU-bound executor.
func ViaCPU[T any](thunk func() (T, error)) Task[T] {
	return Via(executor.CPU(), thunk)
}
