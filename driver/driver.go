// Package driver runs producer and consumer goroutines against a
// gridbuf.Grid, the Go equivalent of the Producer/Consumer thread
// classes used to exercise the original buffer.
package driver

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kessler-oss/gridbuf"
	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// Fill writes the contents of one row. absRow is the row's absolute id;
// row is the slice of cells to populate.
type Fill[T any] func(absRow int64, row []T)

// Drain observes the contents of one row after it has been read. row
// must not be retained past the call: the buffer reuses its backing
// storage once PublishEmptied is called.
type Drain[T any] func(absRow int64, row []T)

// Producer repeatedly acquires a row from g, fills it with fn, and
// publishes it, until g reports Stopped. ctx is only checked between
// acquisitions: a Producer blocked waiting for a row only unblocks when
// the grid itself is stopped, since the row-acquisition protocol has no
// context support of its own. It returns the number of rows produced.
func Producer[T any](ctx context.Context, g *gridbuf.Grid[T], fn Fill[T]) int64 {
	var produced int64

	for {
		select {
		case <-ctx.Done():
			return produced
		default:
		}

		ringRow, absRow := g.Produce()
		if ringRow == gridbuf.Stopped {
			return produced
		}

		fn(absRow, g.Row(ringRow))
		g.PublishFilled(ringRow)
		produced++
	}
}

// Consumer repeatedly acquires a row from g, hands it to fn, and
// releases it, until g reports Stopped. ctx is only checked between
// acquisitions; see Producer.
func Consumer[T any](ctx context.Context, g *gridbuf.Grid[T], fn Drain[T]) int64 {
	var consumed int64

	for {
		select {
		case <-ctx.Done():
			return consumed
		default:
		}

		ringRow, absRow := g.Consume()
		if ringRow == gridbuf.Stopped {
			return consumed
		}

		fn(absRow, g.Row(ringRow))
		g.PublishEmptied(ringRow)
		consumed++
	}
}

// Report summarizes one Run call.
type Report struct {
	Produced int64
	Consumed int64
}

// Run starts numProducers Producer goroutines and numConsumers Consumer
// goroutines against g, waits for ctx to be canceled, stops g, and
// blocks until every goroutine has returned.
func Run[T any](ctx context.Context, g *gridbuf.Grid[T], numProducers, numConsumers int, fill Fill[T], drain Drain[T]) Report {
	tel := telemetry.NewTelemetry("driver", "run")

	var wgProd, wgCons sync.WaitGroup
	var totalProduced, totalConsumed atomic.Int64

	tel.LogInfo("starting producers and consumers", "producers", numProducers, "consumers", numConsumers)

	wgProd.Add(numProducers)
	for i := range numProducers {
		go func(id int) {
			defer wgProd.Done()
			n := Producer(ctx, g, fill)
			totalProduced.Add(n)
			tel.LogDebug("producer done", "id", id, "produced", n)
		}(i)
	}

	wgCons.Add(numConsumers)
	for i := range numConsumers {
		go func(id int) {
			defer wgCons.Done()
			n := Consumer(ctx, g, drain)
			totalConsumed.Add(n)
			tel.LogDebug("consumer done", "id", id, "consumed", n)
		}(i)
	}

	<-ctx.Done()

	tel.LogInfo("stopping producers and consumers")
	g.Stop()

	wgProd.Wait()
	wgCons.Wait()

	report := Report{
		Produced: totalProduced.Load(),
		Consumed: totalConsumed.Load(),
	}
	tel.LogInfo("run complete", "produced", report.Produced, "consumed", report.Consumed)

	return report
}
