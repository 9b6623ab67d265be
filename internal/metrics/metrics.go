// Package metrics registers the observable instruments exposed by a
// running grid buffer. Every instrument is backed by an atomic counter
// already maintained by internal/grid for its own bookkeeping; this
// package only wires those counters into an internal/telemetry scope so
// they surface through otel's metric API.
package metrics

import (
	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// Source is the subset of internal/grid.Buffer's read-only accessors
// this package instruments. internal/grid.Buffer satisfies it for any T.
type Source interface {
	Produced() int64
	Consumed() int64
	Occupancy() int64
	ABARecoveries() int64
	Rows() uint32
	Cols() uint32
}

// Register attaches counters and gauges for src to tel. It is idempotent
// per tel instance only in the sense that otel itself rejects duplicate
// instrument names on the same meter; callers should call Register once
// per buffer.
func Register(tel *telemetry.Telemetry, src Source) {
	tel.NewCounter("rows_produced", src.Produced)
	tel.NewCounter("rows_consumed", src.Consumed)
	tel.NewCounter("aba_recoveries", src.ABARecoveries)

	tel.NewGauge("occupancy", src.Occupancy)
	tel.NewGauge("rows", func() int64 { return int64(src.Rows()) })
	tel.NewGauge("cols", func() int64 { return int64(src.Cols()) })
}
