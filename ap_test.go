package flux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPConcatForkEmitsPerValueInOrder(t *testing.T) {
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		return ConcatEach(scope, Enumerate([]int{1, 2, 3}), func(v int) error {
			return out.Emit(scope, v*10)
		})
	})

	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, vs)
}

func TestAPConcatForkParksSequentially(t *testing.T) {
	// Per-value sleeps complete strictly in enumeration order under ??,
	// regardless of their durations: the next value is not requested
	// before the current branch finished.
	delays := []int{30, 10, 20}
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		return ConcatEach(scope, Enumerate(delays), func(v int) error {
			x, err := Park(scope, Sleep(time.Duration(v)*time.Millisecond, v))
			if err != nil {
				return err
			}
			return out.Emit(scope, x)
		})
	})

	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 10, 20}, vs)
}

func TestAPSwitchForkOnlyLatestBranchEmits(t *testing.T) {
	// Enumerate hands over all three values back-to-back, so branches for
	// 1 and 2 are preempted during their park; only the branch for the
	// final value runs to completion.
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		return SwitchEach(scope, Enumerate([]int{1, 2, 3}), func(bs *Scope, v int) error {
			x, err := Park(bs, Sleep(50*time.Millisecond, v))
			if err != nil {
				return err
			}
			return out.Emit(bs, x*10)
		})
	})

	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{30}, vs)
}

func TestAPGatherForkInterleavesByCompletion(t *testing.T) {
	delays := []int{30, 10, 20}
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		return GatherEach(scope, Enumerate(delays), func(bs *Scope, v int) error {
			x, err := Park(bs, Sleep(time.Duration(v)*time.Millisecond, v))
			if err != nil {
				return err
			}
			return out.Emit(bs, x)
		})
	})

	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, vs)
}

func TestAPGatherForkBranchFailureFailsFlow(t *testing.T) {
	boom := errors.New("boom")
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		return GatherEach(scope, Enumerate([]int{1, 2, 3}), func(bs *Scope, v int) error {
			if v == 2 {
				return boom
			}
			x, err := Park(bs, Sleep(20*time.Millisecond, v))
			if err != nil {
				return err
			}
			return out.Emit(bs, x)
		})
	})

	_, err := Await(CollectFlow(flow))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAPBodyErrorFailsFlow(t *testing.T) {
	boom := errors.New("boom")
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		if err := out.Emit(scope, 1); err != nil {
			return err
		}
		return boom
	})

	_, err := Await(CollectFlow(flow))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAPCancelDeliversTerminator(t *testing.T) {
	term := make(chan error, 1)
	flow := AP(func(scope *Scope, out *Emitter[int]) error {
		<-scope.Done()
		return ErrCancelled
	})

	xfer := flow(func() {}, func(err error) { term <- err })
	xfer.Cancel()
	xfer.Cancel() // idempotent

	select {
	case err := <-term:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("terminator never fired after cancellation")
	}
}

func TestScopePoll(t *testing.T) {
	scope := newScope()
	require.NoError(t, scope.Poll())
	scope.cancel()
	assert.ErrorIs(t, scope.Poll(), ErrCancelled)
}
