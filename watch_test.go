package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDeliversCurrentValueThenUpdates(t *testing.T) {
	ref := NewRef(1)
	var notified int
	xfer := Watch(ref)(func() { notified++ }, func(error) {})

	v, err := xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, notified)

	ref.Set(2)
	assert.Equal(t, 2, notified)

	v, err = xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestWatchCoalescesSetsBeforeTake(t *testing.T) {
	ref := NewRef(1)
	var notified int
	xfer := Watch(ref)(func() { notified++ }, func(error) {})

	// first notify is the initial value; clear it before testing coalescing.
	v, err := xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	ref.Set(2)
	ref.Set(3)
	assert.Equal(t, 2, notified) // second Set found a notification already pending

	v, err = xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 3, v) // only the latest value survives
}

func TestWatchCancelRemovesWatcher(t *testing.T) {
	ref := NewRef(1)
	var notified int
	xfer := Watch(ref)(func() { notified++ }, func(error) {})
	xfer.Cancel()

	before := notified
	ref.Set(99)
	assert.Equal(t, before, notified)

	_, err := xfer.Take()
	assert.ErrorIs(t, err, ErrCancelled)
}
