package gridbuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultShape(t *testing.T) {
	g := New[int64](10, 4)
	assert.EqualValues(t, 10, g.Rows())
	assert.EqualValues(t, 4, g.Cols())
	assert.EqualValues(t, 40, g.Capacity())
}

func TestProduceConsume_RoundTrip(t *testing.T) {
	g := New[int64](4, 3)

	r, a := g.Produce()
	require.NotEqual(t, Stopped, r)
	row := g.Row(r)
	for i := range row {
		row[i] = a*3 + int64(i)
	}
	g.PublishFilled(r)

	cr, ca := g.Consume()
	require.Equal(t, r, cr)
	require.Equal(t, a, ca)
	assert.Equal(t, []int64{0, 1, 2}, g.Row(cr))
	g.PublishEmptied(cr)
}

func TestWithBackoff_PureSpinRoundTrip(t *testing.T) {
	g := New[int64](1, 1, WithBackoff(PureSpin, 0))

	r, a := g.Produce()
	g.Row(r)[0] = a
	g.PublishFilled(r)

	done := make(chan struct{})
	go func() {
		r2, _ := g.Consume()
		assert.NotEqual(t, Stopped, r2)
		g.PublishEmptied(r2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume did not complete under pure-spin backoff")
	}
}

func TestStop_UnblocksWaiters(t *testing.T) {
	g := New[int64](1, 1)

	done := make(chan uint32, 1)
	go func() {
		r, _ := g.Consume()
		done <- r
	}()

	time.Sleep(5 * time.Millisecond)
	g.Stop()

	select {
	case r := <-done:
		assert.Equal(t, Stopped, r)
	case <-time.After(time.Second):
		t.Fatal("stop did not unblock consumer")
	}
	assert.True(t, g.IsStopped())
}

func TestReshape_ThenReset(t *testing.T) {
	g := New[int64](10, 1)
	require.NoError(t, g.Reshape(5, 2))
	g.Reset()

	assert.EqualValues(t, 5, g.Rows())
	assert.EqualValues(t, 2, g.Cols())
	assert.False(t, g.IsStopped())
	assert.Zero(t, g.Occupancy())
}

func TestReshape_RejectsCapacityChange(t *testing.T) {
	g := New[int64](10, 1)
	err := g.Reshape(3, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
