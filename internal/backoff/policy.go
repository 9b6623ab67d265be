// Package backoff implements the contention back-off strategies used by
// the row acquisition loops in internal/grid.
//
// A Policy is stateless and shared by every caller; a Waiter carries the
// per-call spin count and must never be shared across goroutines or reused
// across unrelated contention episodes.
package backoff

import (
	"runtime"
	"time"

	"github.com/valyala/fastrand"
)

// Kind selects the contention strategy used while spinning on a row's
// status CAS.
type Kind uint8

const (
	// SpinThenSleep spins for SpinLimit iterations, then sleeps SleepBase
	// plus a random jitter in [0, SleepJitter) before retrying. This is
	// the default and mirrors the original buffer's fixed 1us sleep.
	SpinThenSleep Kind = iota
	// PureSpin never sleeps. It still yields to the Go scheduler on every
	// iteration: a true hardware spin-wait would starve other goroutines
	// under GOMAXPROCS=1, which the original single-threaded-per-core C++
	// design never had to account for.
	PureSpin
	// Yield always calls runtime.Gosched and never sleeps; it differs from
	// PureSpin only in intent (documented as the polite, not the fast,
	// option) and is a useful baseline when measuring the S4 generation-
	// collision scenario.
	Yield
)

func (k Kind) String() string {
	switch k {
	case SpinThenSleep:
		return "spin-then-sleep"
	case PureSpin:
		return "pure-spin"
	case Yield:
		return "yield"
	default:
		return "unknown"
	}
}

// Policy is an immutable back-off configuration.
type Policy struct {
	Kind Kind

	// SpinLimit is the number of Gosched iterations tried before falling
	// back to sleeping, when Kind is SpinThenSleep.
	SpinLimit uint32

	// SleepBase is the fixed sleep duration once SpinLimit is exceeded.
	SleepBase time.Duration

	// SleepJitter is the upper bound of the random jitter added to every
	// sleep, used to avoid synchronized retries among rows under heavy
	// contention.
	SleepJitter time.Duration
}

// Default returns the policy matching the original buffer's behavior: a
// short spin followed by a 1 microsecond sleep with up to 1 microsecond of
// jitter.
func Default() Policy {
	return Policy{
		Kind:        SpinThenSleep,
		SpinLimit:   64,
		SleepBase:   time.Microsecond,
		SleepJitter: time.Microsecond,
	}
}

// NewWaiter returns a fresh Waiter bound to this policy.
func (p Policy) NewWaiter() *Waiter {
	return &Waiter{policy: p}
}

// Waiter tracks the spin count for a single acquire call.
type Waiter struct {
	policy Policy
	spins  uint32
}

// Wait backs off once, according to the waiter's policy.
func (w *Waiter) Wait() {
	switch w.policy.Kind {
	case PureSpin, Yield:
		runtime.Gosched()
	default:
		w.spins++
		if w.spins <= w.policy.SpinLimit {
			runtime.Gosched()
			return
		}
		sleep := w.policy.SleepBase
		if w.policy.SleepJitter > 0 {
			sleep += time.Duration(fastrand.Uint32n(uint32(w.policy.SleepJitter)))
		}
		time.Sleep(sleep)
	}
}
