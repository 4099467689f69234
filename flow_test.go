package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateAndCollectFlow(t *testing.T) {
	flow := Enumerate([]int{1, 2, 3})
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, vs)
}

func TestTransformMapFilter(t *testing.T) {
	xf := Compose2(
		FilterX(func(v int) bool { return v%2 == 0 }),
		MapX(func(v int) int { return v * 10 }),
	)
	flow := Transform(xf, Enumerate([]int{1, 2, 3, 4, 5, 6}))
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{20, 40, 60}, vs)
}

func TestPartitionAllXTrailingFlush(t *testing.T) {
	xf := PartitionAllX[int](4)
	flow := Transform(xf, Enumerate([]int{0, 1, 2, 3, 4, 5, 6, 7, 8}))
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {8}}, vs)
}

func TestTransformComposedTransducer(t *testing.T) {
	xf := Compose3(
		FilterX(func(v int) bool { return v%2 == 1 }),
		MapcatX(func(v int) []int {
			out := make([]int, v)
			for i := range out {
				out[i] = i
			}
			return out
		}),
		PartitionAllX[int](4),
	)
	flow := Transform(xf, Enumerate([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, [][]int{
		{0, 0, 1, 2},
		{0, 1, 2, 3},
		{4, 0, 1, 2},
		{3, 4, 5, 6},
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{8},
	}, vs)
}

func TestIntegrateRunningSum(t *testing.T) {
	rf := func(acc, v int) (int, bool) { return acc + v, false }
	flow := Integrate(rf, 0, Enumerate([]int{1, 2, 3}))
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3, 6}, vs)
}

func TestBufferDrainsInOrder(t *testing.T) {
	flow := Buffer(8, Enumerate([]int{1, 2, 3, 4}))
	vs, err := Await(CollectFlow(flow))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, vs)
}

func TestObserveOverflow(t *testing.T) {
	var event func(int) error
	subject := Subject[int](func(e func(int) error) func() {
		event = e
		return func() {}
	})
	flow := Observe(subject)

	var gotErr error
	xfer := flow(func() {}, func(err error) { gotErr = err })
	require.NotNil(t, event)

	require.NoError(t, event(1))
	require.Error(t, event(2))

	v, err := xfer.Take()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	_ = gotErr
}

func TestZipLockstep(t *testing.T) {
	a := Enumerate([]int{1, 2, 3})
	b := Enumerate([]string{"a", "b", "c"})
	zipped := Zip(func(vs ...int) int {
		total := 0
		for _, v := range vs {
			total += v
		}
		return total
	}, a, Transform(MapX(func(s string) int { return len(s) }), b))
	vs, err := Await(CollectFlow(zipped))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, vs)
}

func TestZipTruncatesToShortestUpstream(t *testing.T) {
	zipped := Zip(func(vs ...int) int { return vs[0] + vs[1] },
		Enumerate([]int{1, 2, 3, 4}),
		Enumerate([]int{10, 20}),
	)
	vs, err := Await(CollectFlow(zipped))
	require.NoError(t, err)
	assert.Equal(t, []int{11, 22}, vs)
}

func TestGatherMergesAllUpstreams(t *testing.T) {
	merged := Gather(Enumerate([]int{1, 2}), Enumerate([]int{3, 4}))
	vs, err := Await(CollectFlow(merged))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, vs)
}
