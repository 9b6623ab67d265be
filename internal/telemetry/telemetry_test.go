package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelemetry_LogsDoNotPanic(t *testing.T) {
	tel := NewTelemetry("test", "scope")

	tel.LogInfo("hello", "k", "v")
	tel.LogWarn("careful", "k", "v")
	tel.LogDebug("detail")
	tel.LogError("oops", assertErr{}, "k", "v")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestCounterAndGauge_AreCollectible(t *testing.T) {
	tel := NewTelemetry("test", "metrics")

	var counterVal, gaugeVal int64 = 3, 7
	tel.NewCounter("widgets", func() int64 { return counterVal })
	tel.NewGauge("pressure", func() int64 { return gaugeVal })

	rm, err := tel.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Len(t, rm.ScopeMetrics[0].Metrics, 2)
}
