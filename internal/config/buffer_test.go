package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kessler-oss/gridbuf/internal/backoff"
)

func TestBuffer_Validate_FallsBackOnZero(t *testing.T) {
	ac := newAnomalyCollector()
	b := &Buffer{Rows: 0, Cols: 0, Backoff: NewBackoff()}

	b.Validate(ac)

	assert.EqualValues(t, DefaultBufferRows, b.Rows)
	assert.EqualValues(t, DefaultBufferCols, b.Cols)

	count := 0
	for range ac.iter() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestBuffer_Validate_NilBackoffGetsDefaulted(t *testing.T) {
	ac := newAnomalyCollector()
	b := &Buffer{Rows: 4, Cols: 2}

	b.Validate(ac)

	assert.NotNil(t, b.Backoff)
	assert.Equal(t, DefaultBackoffKind, b.Backoff.Kind)
}

func TestBackoff_Validate_UnrecognizedKindFallsBack(t *testing.T) {
	ac := newAnomalyCollector()
	b := &Backoff{Kind: "not-a-real-kind", SleepBase: time.Microsecond, SleepJitter: time.Microsecond}

	b.Validate(ac)

	assert.Equal(t, DefaultBackoffKind, b.Kind)
}

func TestBackoff_Policy_MapsKind(t *testing.T) {
	assert.Equal(t, backoff.PureSpin, (&Backoff{Kind: "pure-spin"}).Policy().Kind)
	assert.Equal(t, backoff.Yield, (&Backoff{Kind: "yield"}).Policy().Kind)
	assert.Equal(t, backoff.SpinThenSleep, (&Backoff{Kind: "spin-then-sleep"}).Policy().Kind)
}
