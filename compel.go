package flux

// Compel subscribes to t and returns a no-op cancel handle, hiding
// cancellation from t: callers of the composite cannot cancel t itself.
func Compel[T any](t Task[T]) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		t(onSuccess, onFailure)
		return noopCancel()
	}
}
