package flux

// Thunk is a zero-arg operation that either returns t's value or panics
// with t's error — the success-value shape Attempt reifies a task's
// outcome into.
type Thunk[T any] func() T

// Attempt always succeeds; its success value is a thunk that, when called,
// either returns t's value or panics with t's error. Pair with Absolve to
// reify a task's outcome as data and later restore it.
func Attempt[T any](t Task[T]) Task[Thunk[T]] {
	return func(onSuccess func(Thunk[T]), _ func(error)) CancelFunc {
		return t(
			func(v T) {
				onSuccess(func() T { return v })
			},
			func(err error) {
				onSuccess(func() T { panic(err) })
			},
		)
	}
}

// Absolve runs t, which is expected to succeed with a zero-arg thunk
// (typically produced by Attempt). If the thunk panics, the composite
// fails with the panicked error (recovered); the panic value is expected
// to be an error, matching Attempt's construction.
func Absolve[T any](t Task[Thunk[T]]) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		return t(
			func(thunk Thunk[T]) {
				var result T
				var failed error
				func() {
					defer func() {
						if r := recover(); r != nil {
							if err, ok := r.(error); ok {
								failed = err
							} else {
								failed = newTaskPanicError(r)
							}
						}
					}()
					result = thunk()
				}()

				if failed != nil {
					onFailure(failed)
					return
				}
				onSuccess(result)
			},
			onFailure,
		)
	}
}
