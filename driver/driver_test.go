package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler-oss/gridbuf"
)

func TestRun_ProducesAndConsumesUnderLoad(t *testing.T) {
	g := gridbuf.New[int64](8, 4)

	var seen sync.Map
	var dupes atomic.Int64

	fill := func(absRow int64, row []int64) {
		for col := range row {
			row[col] = absRow*int64(len(row)) + int64(col)
		}
	}
	drain := func(absRow int64, row []int64) {
		if _, loaded := seen.LoadOrStore(absRow, true); loaded {
			dupes.Add(1)
		}
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	report := Run(ctx, g, 3, 3, fill, drain)

	assert.Zero(t, dupes.Load())
	assert.LessOrEqual(t, report.Consumed, report.Produced)
	assert.True(t, g.IsStopped())
}

func TestProducer_StopsOnGridStop(t *testing.T) {
	g := gridbuf.New[int64](2, 1)

	// saturate the buffer so the producer blocks
	for range 2 {
		r, a := g.Produce()
		require.NotEqual(t, gridbuf.Stopped, r)
		g.Row(r)[0] = a
		g.PublishFilled(r)
	}

	done := make(chan int64, 1)
	go func() {
		n := Producer(t.Context(), g, func(int64, []int64) {})
		done <- n
	}()

	time.Sleep(5 * time.Millisecond)
	g.Stop()

	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop")
	}
}

func TestConsumer_StopsOnGridStop(t *testing.T) {
	g := gridbuf.New[int64](4, 1)

	done := make(chan int64, 1)
	go func() {
		n := Consumer(t.Context(), g, func(int64, []int64) {})
		done <- n
	}()

	time.Sleep(5 * time.Millisecond)
	g.Stop()

	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on grid stop")
	}
}
