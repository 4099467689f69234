package flux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreAcquireRelease(t *testing.T) {
	s := NewSemaphore(1)
	_, err := Await(s.Acquire())
	require.NoError(t, err)

	done := make(chan struct{})
	acquired := false
	s.Acquire()(
		func(struct{}) { acquired = true; close(done) },
		func(error) { close(done) },
	)

	select {
	case <-done:
		t.Fatal("second acquire should block while semaphore is held")
	case <-time.After(20 * time.Millisecond):
	}

	s.Release()
	<-done
	assert.True(t, acquired)
}

func TestSemaphoreAcquireCancelDoesNotConsumeToken(t *testing.T) {
	s := NewSemaphore(0)
	done := make(chan struct{})
	var gotErr error
	cancel := s.Acquire()(
		func(struct{}) { close(done) },
		func(err error) { gotErr = err; close(done) },
	)
	cancel()
	<-done
	assert.ErrorIs(t, gotErr, ErrCancelled)

	s.Release()
	_, err := Await(s.Acquire())
	require.NoError(t, err)
}

func TestHoldingReleasesOnSuccess(t *testing.T) {
	s := NewSemaphore(1)
	v, err := Await(Holding(s, func() Task[int] { return Succeed(3) }))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = Await(s.Acquire())
	require.NoError(t, err)
}

func TestHoldingReleasesOnFailure(t *testing.T) {
	s := NewSemaphore(1)
	boom := errors.New("boom")
	_, err := Await(Holding(s, func() Task[int] { return Fail[int](boom) }))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	_, err = Await(s.Acquire())
	require.NoError(t, err)
}

// hungryPhilosopher grabs left, dawdles, then grabs right, forever. With
// every philosopher reaching for left first the table deadlocks, which the
// surrounding Timeout resolves; afterwards every fork must be back on the
// table.
func hungryPhilosopher(left, right *Semaphore) Task[struct{}] {
	return SP(func(scope *Scope) (struct{}, error) {
		for {
			if err := scope.Poll(); err != nil {
				return struct{}{}, err
			}
			_, err := Park(scope, Holding(left, func() Task[struct{}] {
				return SP(func(inner *Scope) (struct{}, error) {
					if _, err := Park(inner, Sleep(20*time.Millisecond, struct{}{})); err != nil {
						return struct{}{}, err
					}
					return Park(inner, Holding(right, func() Task[struct{}] {
						return Sleep(time.Millisecond, struct{}{})
					}))
				})
			}))
			if err != nil {
				return struct{}{}, err
			}
		}
	})
}

func TestDiningPhilosophersTimeoutRestoresForks(t *testing.T) {
	const n = 5
	forks := make([]*Semaphore, n)
	for i := range forks {
		forks[i] = NewSemaphore(1)
	}
	phils := make([]Task[struct{}], n)
	for i := range phils {
		phils[i] = hungryPhilosopher(forks[i], forks[(i+1)%n])
	}

	_, err := Await(Timeout(300*time.Millisecond, Join(func(vs ...struct{}) int { return len(vs) }, phils...)))
	require.Error(t, err)
	assert.ErrorIs(t, err, &TimeoutError{})

	// Cancellation released every held fork.
	for i, fork := range forks {
		_, err := Await(Timeout(time.Second, fork.Acquire()))
		require.NoErrorf(t, err, "fork %d was not released", i)
		fork.Release()
	}
}

func TestHoldingReleasesOnPanic(t *testing.T) {
	s := NewSemaphore(1)
	_, err := Await(Holding(s, func() Task[int] {
		return FromFunc(func() (int, error) {
			panic("boom")
		})
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskPanicked)

	_, err = Await(s.Acquire())
	require.NoError(t, err)
}
