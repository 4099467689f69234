package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDeliversEvents(t *testing.T) {
	var event func(int) error
	subject := Subject[int](func(e func(int) error) func() {
		event = e
		return func() {}
	})

	var notified int
	xfer := Observe[int](subject)(func() { notified++ }, func(error) {})

	require.NoError(t, event(1))
	assert.Equal(t, 1, notified)

	v, err := xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, event(2))
	v, err = xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestObserveOverflowOnDoubleEvent(t *testing.T) {
	var event func(int) error
	subject := Subject[int](func(e func(int) error) func() {
		event = e
		return func() {}
	})

	Observe[int](subject)(func() {}, func(error) {})

	require.NoError(t, event(1))
	err := event(2)
	require.Error(t, err)
	var overflow *OverflowError
	assert.ErrorAs(t, err, &overflow)
}

func TestObserveCleanupCalledOnCancel(t *testing.T) {
	var cleanedUp bool
	subject := Subject[int](func(func(int) error) func() {
		return func() { cleanedUp = true }
	})

	xfer := Observe[int](subject)(func() {}, func(error) {})
	xfer.Cancel()
	assert.True(t, cleanedUp)
}
