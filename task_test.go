package flux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSucceedAndFail(t *testing.T) {
	v, err := Await(Succeed(42))
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Await(Fail[int](boom))
	assert.ErrorIs(t, err, boom)
}

func TestFromFuncSuccess(t *testing.T) {
	task := FromFunc(func() (string, error) { return "ok", nil })
	v, err := Await(task)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFromFuncPanicRecovered(t *testing.T) {
	task := FromFunc(func() (int, error) {
		panic("kaboom")
	})
	_, err := Await(task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskPanicked)
}

func TestDeferFreshPerSubscription(t *testing.T) {
	n := 0
	task := Defer(func() Task[int] {
		n++
		return Succeed(n)
	})

	v1, _ := Await(task)
	v2, _ := Await(task)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}

func TestSleep(t *testing.T) {
	start := time.Now()
	v, err := Await(Sleep(10*time.Millisecond, "done"))
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestNeverCancel(t *testing.T) {
	task := Never[int]()
	done := make(chan struct{})
	var gotErr error
	cancel := task(
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
