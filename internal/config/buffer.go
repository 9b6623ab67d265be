package config

import (
	"time"

	"github.com/kessler-oss/gridbuf/internal/backoff"
)

// Default configuration values for a Buffer.
const (
	DefaultBufferRows = 64
	DefaultBufferCols = 1

	DefaultBackoffKind        = "spin-then-sleep"
	DefaultBackoffSpinLimit   = 64
	DefaultBackoffSleepBase   = time.Microsecond
	DefaultBackoffSleepJitter = time.Microsecond
)

// Backoff is the configuration for the contention back-off policy used
// by a grid buffer's producers and consumers.
type Backoff struct {
	// Kind selects the back-off strategy: "spin-then-sleep", "pure-spin"
	// or "yield".
	Kind string

	// SpinLimit is the number of scheduler-yielding spins tried before
	// sleeping, when Kind is "spin-then-sleep".
	SpinLimit uint32

	// SleepBase is the fixed sleep duration once SpinLimit is exceeded.
	SleepBase time.Duration

	// SleepJitter is the upper bound of the random jitter added to every
	// sleep.
	SleepJitter time.Duration
}

// NewBackoff returns the default back-off configuration.
func NewBackoff() *Backoff {
	return &Backoff{
		Kind:        DefaultBackoffKind,
		SpinLimit:   DefaultBackoffSpinLimit,
		SleepBase:   DefaultBackoffSleepBase,
		SleepJitter: DefaultBackoffSleepJitter,
	}
}

// Validate checks the configuration, falling back to defaults for any
// anomalous field.
func (b *Backoff) Validate(ac *AnomalyCollector) {
	switch b.Kind {
	case "spin-then-sleep", "pure-spin", "yield":
	default:
		ac.add("Kind", "unrecognized back-off kind", b.Kind, DefaultBackoffKind)
		b.Kind = DefaultBackoffKind
	}

	CheckNotNegative(ac, "SleepBase", &b.SleepBase, DefaultBackoffSleepBase)
	CheckNotNegative(ac, "SleepJitter", &b.SleepJitter, DefaultBackoffSleepJitter)
}

// Policy converts the configuration into a backoff.Policy.
func (b *Backoff) Policy() backoff.Policy {
	kind := backoff.SpinThenSleep
	switch b.Kind {
	case "pure-spin":
		kind = backoff.PureSpin
	case "yield":
		kind = backoff.Yield
	}

	return backoff.Policy{
		Kind:        kind,
		SpinLimit:   b.SpinLimit,
		SleepBase:   b.SleepBase,
		SleepJitter: b.SleepJitter,
	}
}

// Buffer is the configuration for a grid ring buffer.
type Buffer struct {
	// Rows is the initial number of ring rows.
	Rows uint32

	// Cols is the initial number of columns per row.
	Cols uint32

	// Backoff configures the contention back-off policy shared by every
	// producer and consumer of the buffer.
	Backoff *Backoff
}

// NewBuffer returns the default buffer configuration.
func NewBuffer() *Buffer {
	return &Buffer{
		Rows:    DefaultBufferRows,
		Cols:    DefaultBufferCols,
		Backoff: NewBackoff(),
	}
}

// Validate checks the configuration, falling back to defaults for any
// anomalous field.
func (b *Buffer) Validate(ac *AnomalyCollector) {
	CheckNotZero(ac, "Rows", &b.Rows, DefaultBufferRows)
	CheckNotZero(ac, "Cols", &b.Cols, DefaultBufferCols)

	if b.Backoff == nil {
		b.Backoff = NewBackoff()
	}
	b.Backoff.Validate(ac)
}
