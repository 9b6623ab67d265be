package grid

// AcquireProduce blocks (spin, then back off per policy) until a ring row
// transitions to READY_FOR_WRITE and this call is the one to CAS it to
// WRITING. On a successful return the caller has exclusive write access
// to ringRow's cells (via RowBase) and must eventually call
// PublishFilled(ringRow).
//
// If the buffer is stopped before a row can be acquired, AcquireProduce
// returns (Stopped, 0); the caller must not use the returned row.
func (b *Buffer[T]) AcquireProduce() (ringRow uint32, absRow int64) {
	waiter := b.backoff.NewWaiter()

	for {
		if b.stopped.Load() {
			return Stopped, 0
		}

		a := b.produce.Load()
		r := uint32(a % int64(b.rows.Load()))

		if b.statuses[r].CompareAndSwap(readyForWrite, writing) {
			// The status CAS serializes access to this row: only the
			// winner reaches this point for a given (r, a) pairing, so
			// the generation and counter stores below need not be CAS
			// themselves.
			if b.stopped.Load() {
				return Stopped, 0
			}

			b.generations[r].Store(a)
			b.produce.Store(a + 1)
			return r, a
		}

		waiter.Wait()
	}
}

// AcquireConsume blocks until a ring row holding the currently expected
// generation transitions to READY_FOR_READ and this call CASes it to
// READING. On a successful return the caller has exclusive read access
// to ringRow's cells and must eventually call PublishEmptied(ringRow).
//
// AcquireConsume guards against the ring's ABA hazard: because ring row r
// maps to every absolute row id in {r, r+R, r+2R, ...}, a consumer that
// slept between observing C and winning the status CAS may find that a
// producer has since overwritten the row with a later generation. When
// that happens the row is released back to READY_FOR_READ (for whichever
// consumer is actually entitled to it) and the outer loop restarts
// against the now-advanced C.
func (b *Buffer[T]) AcquireConsume() (ringRow uint32, absRow int64) {
	for {
		if b.stopped.Load() {
			return Stopped, 0
		}

		a := b.consume.Load()
		r := uint32(a % int64(b.rows.Load()))

		waiter := b.backoff.NewWaiter()
		for !b.statuses[r].CompareAndSwap(readyForRead, reading) {
			if b.stopped.Load() {
				return Stopped, 0
			}
			waiter.Wait()
			a = b.consume.Load()
			r = uint32(a % int64(b.rows.Load()))
		}

		if b.stopped.Load() {
			return Stopped, 0
		}

		if b.generations[r].Load() == a {
			b.consume.Store(a + 1)
			return r, a
		}

		// This ring slot no longer holds the generation we were
		// waiting for: some other consumer already took it, and a
		// producer has since refilled it with a later generation.
		// Release it back for whoever that generation belongs to and
		// retry against the current C.
		b.abaRecoveries.Add(1)
		b.statuses[r].Store(readyForRead)
	}
}

// PublishFilled releases ringRow from WRITING to READY_FOR_READ. The
// caller must currently hold WRITING on ringRow (i.e. returned it from a
// matching AcquireProduce) and must have finished writing every cell in
// the row before calling this — the store below is the release operation
// that makes those writes visible to whichever consumer wins the row.
func (b *Buffer[T]) PublishFilled(ringRow uint32) {
	b.statuses[ringRow].Store(readyForRead)
}

// PublishEmptied releases ringRow from READING to READY_FOR_WRITE. The
// caller must currently hold READING on ringRow.
func (b *Buffer[T]) PublishEmptied(ringRow uint32) {
	b.statuses[ringRow].Store(readyForWrite)
}
