// Package gridbuf provides a multi-producer/multi-consumer bounded ring
// buffer organized as a row-by-column grid, synchronized at row
// granularity so a batch of column values moves as a unit under a
// single atomic operation.
package gridbuf

import (
	"github.com/kessler-oss/gridbuf/internal/backoff"
	"github.com/kessler-oss/gridbuf/internal/config"
	"github.com/kessler-oss/gridbuf/internal/grid"
	"github.com/kessler-oss/gridbuf/internal/metrics"
	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// Stopped is the sentinel ring-row value returned by Produce and Consume
// once the buffer has been stopped.
const Stopped = grid.Stopped

// ErrShapeMismatch is returned by Reshape when rows*cols does not equal
// the buffer's fixed capacity.
var ErrShapeMismatch = grid.ErrShapeMismatch

// BackoffKind selects the contention strategy a Grid's producers and
// consumers use while waiting for a row.
type BackoffKind = backoff.Kind

const (
	SpinThenSleep = backoff.SpinThenSleep
	PureSpin      = backoff.PureSpin
	Yield         = backoff.Yield
)

// Grid is a multi-producer/multi-consumer grid ring buffer holding
// elements of type T.
type Grid[T any] struct {
	buf *grid.Buffer[T]
	tel *telemetry.Telemetry
}

// Option configures a Grid at construction time.
type Option func(*options)

type options struct {
	backoff    backoff.Policy
	name       string
	withMetric bool
}

// WithBackoff overrides the default contention back-off policy.
func WithBackoff(kind BackoffKind, spinLimit uint32) Option {
	return func(o *options) {
		o.backoff.Kind = kind
		o.backoff.SpinLimit = spinLimit
	}
}

// WithName scopes the Grid's logs and metrics under name instead of the
// default "grid".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMetrics registers the Grid's counters and gauges with its
// telemetry scope. Disabled by default since most callers only need it
// when running under the CLI driver.
func WithMetrics() Option {
	return func(o *options) {
		o.withMetric = true
	}
}

// New constructs a Grid with the given initial shape.
func New[T any](rows, cols uint32, opts ...Option) *Grid[T] {
	o := &options{
		backoff: backoff.Default(),
		name:    "grid",
	}
	for _, opt := range opts {
		opt(o)
	}

	tel := telemetry.NewTelemetry("gridbuf", o.name)
	buf := grid.New[T](rows, cols, o.backoff)

	if o.withMetric {
		metrics.Register(tel, buf)
	}

	return &Grid[T]{buf: buf, tel: tel}
}

// NewFromConfig constructs a Grid from a validated Buffer configuration.
func NewFromConfig[T any](cfg *config.Buffer, opts ...Option) *Grid[T] {
	return New[T](cfg.Rows, cfg.Cols, append(opts, withPolicy(cfg.Backoff.Policy()))...)
}

func withPolicy(p backoff.Policy) Option {
	return func(o *options) {
		o.backoff = p
	}
}

// Produce blocks until a row is available for writing. On success the
// caller has exclusive access to Row(ringRow) and must call
// PublishFilled(ringRow) once every column has been written.
func (g *Grid[T]) Produce() (ringRow uint32, absRow int64) {
	return g.buf.AcquireProduce()
}

// Consume blocks until a row is available for reading. On success the
// caller has exclusive access to Row(ringRow) and must call
// PublishEmptied(ringRow) once every column has been read.
func (g *Grid[T]) Consume() (ringRow uint32, absRow int64) {
	return g.buf.AcquireConsume()
}

// PublishFilled releases ringRow back to the consumers.
func (g *Grid[T]) PublishFilled(ringRow uint32) { g.buf.PublishFilled(ringRow) }

// PublishEmptied releases ringRow back to the producers.
func (g *Grid[T]) PublishEmptied(ringRow uint32) { g.buf.PublishEmptied(ringRow) }

// Row returns the slice of cells belonging to ringRow. The caller must
// currently hold that row via Produce or Consume.
func (g *Grid[T]) Row(ringRow uint32) []T { return g.buf.RowBase(ringRow) }

// Rows returns the current number of ring rows.
func (g *Grid[T]) Rows() uint32 { return g.buf.Rows() }

// Cols returns the current number of columns per row.
func (g *Grid[T]) Cols() uint32 { return g.buf.Cols() }

// Capacity returns the fixed total number of cells.
func (g *Grid[T]) Capacity() uint32 { return g.buf.Capacity() }

// Occupancy returns a hint of how many rows are currently filled but not
// yet consumed.
func (g *Grid[T]) Occupancy() int64 { return g.buf.Occupancy() }

// Reshape changes the row/column split without changing capacity. Only
// safe when no producer or consumer is active.
func (g *Grid[T]) Reshape(rows, cols uint32) error { return g.buf.Reshape(rows, cols) }

// Reset returns the buffer to its initial, unstopped state. Only safe
// when no producer or consumer is active.
func (g *Grid[T]) Reset() { g.buf.Reset() }

// Stop unblocks every goroutine currently waiting inside Produce or
// Consume, and causes every future call to return Stopped.
func (g *Grid[T]) Stop() {
	g.tel.LogInfo("stopping")
	g.buf.Stop()
}

// IsStopped reports whether Stop has been called since the last Reset.
func (g *Grid[T]) IsStopped() bool { return g.buf.IsStopped() }
