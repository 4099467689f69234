package flux

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a counted coordination primitive; n=1 makes a mutex. It is
// backed by golang.org/x/sync's weighted semaphore, which serves waiters in
// FIFO order and consumes nothing when a pending acquire is cancelled. The
// weighted semaphore fixes its capacity at construction while Release here
// may mint tokens beyond the initial count, so the backing semaphore is
// created with an effectively unbounded capacity and all but the initial n
// permits pre-acquired.
type Semaphore struct {
	sem *semaphore.Weighted
}

const semaphoreCapacity = math.MaxInt64

// NewSemaphore returns a semaphore with n tokens initially available.
func NewSemaphore(n int) *Semaphore {
	w := semaphore.NewWeighted(semaphoreCapacity)
	// Cannot block: the semaphore is fresh and has no other holders.
	if err := w.Acquire(context.Background(), semaphoreCapacity-int64(n)); err != nil {
		panic(err)
	}
	return &Semaphore{sem: w}
}

// Release returns one token, waking the longest-waiting Acquire if any.
func (s *Semaphore) Release() {
	s.sem.Release(1)
}

// Acquire is a task completing when a token is available; completion
// atomically consumes it. Waiters are served in FIFO order. Cancelling a
// pending Acquire fails it with ErrCancelled and does not consume a token;
// a cancellation racing the grant loses, and the task succeeds holding the
// token.
func (s *Semaphore) Acquire() Task[struct{}] {
	return func(onSuccess func(struct{}), onFailure func(error)) CancelFunc {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				onFailure(ErrCancelled)
				return
			}
			cancel()
			onSuccess(struct{}{})
		}()
		return onceCancel(cancel)
	}
}

// Holding runs body while holding sem, releasing it on every exit path:
// normal return, error, panic, or cancellation of the Acquire itself.
func Holding[T any](sem *Semaphore, body func() Task[T]) Task[T] {
	return func(onSuccess func(T), onFailure func(error)) CancelFunc {
		var (
			mu          sync.Mutex
			cancelled   bool
			innerCancel CancelFunc
		)

		acquireCancel := sem.Acquire()(
			func(struct{}) {
				mu.Lock()
				if cancelled {
					mu.Unlock()
					sem.Release()
					onFailure(ErrCancelled)
					return
				}
				mu.Unlock()

				release := func(v T, err error, callSuccess bool) {
					sem.Release()
					if callSuccess {
						onSuccess(v)
					} else {
						onFailure(err)
					}
				}

				func() {
					defer func() {
						if r := recover(); r != nil {
							release(*new(T), newTaskPanicError(r), false)
						}
					}()

					c := body()(
						func(v T) { release(v, nil, true) },
						func(err error) { release(*new(T), err, false) },
					)

					mu.Lock()
					innerCancel = c
					mu.Unlock()
				}()
			},
			func(err error) {
				onFailure(err)
			},
		)

		return onceCancel(func() {
			mu.Lock()
			cancelled = true
			ic := innerCancel
			mu.Unlock()

			if ic != nil {
				ic()
			}
			acquireCancel()
		})
	}
}
