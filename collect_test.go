package flux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectTasksAllSucceed(t *testing.T) {
	vs, err := Await(CollectTasks(
		Sleep(30*time.Millisecond, 1),
		Sleep(10*time.Millisecond, 2),
		Sleep(20*time.Millisecond, 3),
	))
	require.NoError(t, err)
	// Completion order, not input order.
	assert.Equal(t, []int{2, 3, 1}, vs)
}

func TestCollectTasksJoinsEveryFailure(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	_, err := Await(CollectTasks(
		Succeed(1),
		Fail[int](first),
		Fail[int](second),
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}

func TestCollectTasksEmpty(t *testing.T) {
	vs, err := Await(CollectTasks[int]())
	require.NoError(t, err)
	assert.Nil(t, vs)
}
