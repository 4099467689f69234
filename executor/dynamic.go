package executor

// dynamic is an unbounded executor: every submission gets its own goroutine
// immediately.
type dynamic struct{}

// NewDynamic returns a Pool that runs every submitted thunk on its own
// goroutine, spawned immediately. Suitable for blocking, I/O-bound work
// where the number of concurrently in-flight thunks is not a concern.
func NewDynamic() Pool {
	return dynamic{}
}

func (dynamic) Submit(fn func(), _ func()) CancelFunc {
	go fn()
	// Already running: cancellation can no longer prevent it from starting.
	return func() {}
}
