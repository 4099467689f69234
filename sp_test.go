package flux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSequencesSteps(t *testing.T) {
	task := SP(func(scope *Scope) (int, error) {
		a, err := Park(scope, Succeed(1))
		if err != nil {
			return 0, err
		}
		b, err := Park(scope, Succeed(a+1))
		if err != nil {
			return 0, err
		}
		return b + 1, nil
	})

	v, err := Await(task)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestSPPropagatesParkFailure(t *testing.T) {
	boom := errors.New("boom")
	task := SP(func(scope *Scope) (int, error) {
		_, err := Park(scope, Fail[int](boom))
		if err != nil {
			return 0, err
		}
		return 1, nil
	})

	_, err := Await(task)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestSPCancelUnblocksPark(t *testing.T) {
	done := make(chan struct{})
	var gotErr error
	cancel := SP(func(scope *Scope) (int, error) {
		return Park(scope, Never[int]())
	})(
		func(int) { close(done) },
		func(err error) {
			gotErr = err
			close(done)
		},
	)
	cancel()
	<-done
	assert.ErrorIs(t, gotErr, ErrCancelled)
}
