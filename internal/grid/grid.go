// Package grid implements a multi-producer/multi-consumer bounded ring
// buffer organized as an R-row by C-column grid. Synchronization happens
// at row granularity: a producer or consumer acquires an entire row with
// a single atomic compare-and-swap, then reads or writes the row's C
// cells without further synchronization. This amortizes the cost of
// atomic coordination across a batch of C payloads.
//
// The buffer's total capacity N = rows*cols is fixed at construction.
// Rows and columns may later be reshaped to any other factorization of N
// via Reshape, but only while no producer or consumer is active.
package grid

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/kessler-oss/gridbuf/internal/backoff"
)

// ErrShapeMismatch is returned by Reshape when rows*cols does not equal
// the buffer's fixed capacity.
var ErrShapeMismatch = errors.New("grid: rows*cols must equal the original capacity")

// status is the per-row state. The zero value is ReadyForWrite so a
// freshly allocated status array starts in the correct state without an
// explicit initialization pass.
type status = uint32

const (
	readyForWrite status = iota
	writing
	readyForRead
	reading
)

// Stopped is the sentinel ring-row value returned by AcquireProduce and
// AcquireConsume once the buffer has been stopped. It is defined as the
// maximum uint32, which is guaranteed to be >= Rows() for any buffer this
// package can construct.
const Stopped uint32 = ^uint32(0)

// neverMapped is the generation tag of a ring row that has never been
// written by a producer.
const neverMapped int64 = -1

// Buffer is a multi-producer/multi-consumer grid ring buffer holding
// elements of type T.
type Buffer[T any] struct {
	rows atomic.Uint32
	cols atomic.Uint32

	_ cpu.CacheLinePad

	// produce is P: one past the highest absolute row id claimed by any
	// producer so far.
	produce atomic.Int64

	_ cpu.CacheLinePad

	// consume is C: one past the highest absolute row id claimed by any
	// consumer so far.
	consume atomic.Int64

	_ cpu.CacheLinePad

	stopped atomic.Bool

	_ cpu.CacheLinePad

	// abaRecoveries counts how many times AcquireConsume observed a
	// generation mismatch and released a row back to READY_FOR_READ. It
	// is metrics-only and never read on the acquisition fast path.
	abaRecoveries atomic.Int64

	// capacity is the fixed N = rows*cols, invariant across reshapes.
	capacity uint32

	// statuses and generations are sized to capacity so that any
	// factorization of N (in particular rows == capacity, cols == 1) has
	// a slot for every possible ring row.
	statuses    []atomic.Uint32
	generations []atomic.Int64

	// data is the flat cell store, row r's cells span
	// [r*cols, r*cols+cols).
	data []T

	backoff backoff.Policy
}

// New allocates a buffer with the given initial shape and back-off
// policy. rows*cols becomes the buffer's fixed capacity for the lifetime
// of the value; Reshape can later change rows and cols but never their
// product.
func New[T any](rows, cols uint32, policy backoff.Policy) *Buffer[T] {
	capacity := rows * cols

	b := &Buffer[T]{
		capacity:    capacity,
		statuses:    make([]atomic.Uint32, capacity),
		generations: make([]atomic.Int64, capacity),
		data:        make([]T, capacity),
		backoff:     policy,
	}
	b.rows.Store(rows)
	b.cols.Store(cols)
	for i := range b.generations {
		b.generations[i].Store(neverMapped)
	}

	return b
}

// Rows returns the current number of ring rows.
func (b *Buffer[T]) Rows() uint32 { return b.rows.Load() }

// Cols returns the current number of columns per row.
func (b *Buffer[T]) Cols() uint32 { return b.cols.Load() }

// Capacity returns the fixed total number of cells, rows*cols, which
// never changes across Reshape calls.
func (b *Buffer[T]) Capacity() uint32 { return b.capacity }

// RowBase returns the slice of cells belonging to ringRow. The caller
// must hold WRITING or READING on ringRow (i.e. have returned from a
// matching AcquireProduce/AcquireConsume); no bounds or ownership
// checking is performed.
func (b *Buffer[T]) RowBase(ringRow uint32) []T {
	cols := b.cols.Load()
	start := ringRow * cols
	return b.data[start : start+cols]
}

// Reshape changes the buffer's row/column split. rows*cols must equal
// Capacity(). Reshape is only safe to call when no producer or consumer
// is currently active; it performs no internal synchronization against
// concurrent acquirers.
func (b *Buffer[T]) Reshape(rows, cols uint32) error {
	if rows*cols != b.capacity {
		return ErrShapeMismatch
	}
	b.rows.Store(rows)
	b.cols.Store(cols)
	return nil
}

// Reset returns the buffer to its initial state: counters zeroed, every
// row READY_FOR_WRITE, every generation tag cleared, and the stop flag
// cleared. Like Reshape, it is only safe when no producer or consumer is
// active.
func (b *Buffer[T]) Reset() {
	b.produce.Store(0)
	b.consume.Store(0)

	rows := b.rows.Load()
	for i := uint32(0); i < rows; i++ {
		b.statuses[i].Store(readyForWrite)
		b.generations[i].Store(neverMapped)
	}

	b.stopped.Store(false)
}

// Stop latches the terminator and forces every row's status back to
// READY_FOR_WRITE, unblocking any goroutine spinning inside
// AcquireProduce or AcquireConsume. Cell contents are undefined for any
// row that was mid-WRITING or mid-READING at the moment Stop was called;
// callers holding such a row must discard it once they observe Stopped.
func (b *Buffer[T]) Stop() {
	b.stopped.Store(true)

	rows := b.rows.Load()
	for i := uint32(0); i < rows; i++ {
		b.statuses[i].Store(readyForWrite)
	}
}

// IsStopped reports whether Stop has been called since the last Reset.
func (b *Buffer[T]) IsStopped() bool {
	return b.stopped.Load()
}

// Occupancy returns P-C, the number of rows claimed by producers but not
// yet claimed by consumers. It is a hint: both counters may move between
// the two loads.
func (b *Buffer[T]) Occupancy() int64 {
	return b.produce.Load() - b.consume.Load()
}

// Produced returns P, the number of rows claimed by producers so far.
func (b *Buffer[T]) Produced() int64 { return b.produce.Load() }

// Consumed returns C, the number of rows claimed by consumers so far.
func (b *Buffer[T]) Consumed() int64 { return b.consume.Load() }

// ABARecoveries returns the number of times a consumer detected a
// generation mismatch and retried against the current C.
func (b *Buffer[T]) ABARecoveries() int64 { return b.abaRecoveries.Load() }
