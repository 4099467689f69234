package flux

import "time"

// Timeout runs t, failing with a *TimeoutError carrying d if t does not
// complete within d; in that case t is cancelled. Implemented purely via
// Race with Sleep: no privileged timer wheel.
func Timeout[T any](d time.Duration, t Task[T]) Task[T] {
	var timeoutThunk Thunk[T] = func() T { panic(&TimeoutError{Duration: d}) }
	return Absolve(Race(Sleep(d, timeoutThunk), Attempt(t)))
}
