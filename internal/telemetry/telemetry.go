// Package telemetry provides the structured logging and metric
// instrumentation shared by every other internal package. It is the
// local, no-collector-required replacement for the network-bound
// OpenTelemetry exporter pipeline used by the stage examples this
// library was adapted from: metrics are still recorded through
// go.opentelemetry.io/otel's API, but the configured reader is an
// in-process otel/sdk/metric manual reader instead of an OTLP exporter,
// so a Buffer never depends on a live collector to run.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Telemetry bundles a scoped logger and a scoped meter for one component
// (a buffer, a sink, a driver stage). Component and name identify the
// scope in every log line it produces and in the name of its meter.
type Telemetry struct {
	logger *slog.Logger
	meter  metric.Meter

	reader *sdkmetric.ManualReader
}

// NewTelemetry returns a Telemetry scoped to component/name, e.g.
// NewTelemetry("sink", "kafka"). Logging goes to stderr, colorized with
// lmittmann/tint when stderr is a terminal and plain otherwise.
func NewTelemetry(component, name string) *Telemetry {
	out := os.Stderr
	isTerm := isatty.IsTerminal(out.Fd())
	var writer io.Writer = out
	if isTerm {
		writer = colorable.NewColorable(out)
	}

	logger := slog.New(tint.NewHandler(writer, &tint.Options{
		Level:   slog.LevelDebug,
		NoColor: !isTerm,
	})).With("component", component, "name", name)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter(fmt.Sprintf("gridbuf/%s/%s", component, name))

	return &Telemetry{
		logger: logger,
		meter:  meter,
		reader: reader,
	}
}

// LogInfo logs an informational message with the given key/value pairs.
func (t *Telemetry) LogInfo(msg string, kv ...any) {
	t.logger.Info(msg, kv...)
}

// LogWarn logs a warning message with the given key/value pairs.
func (t *Telemetry) LogWarn(msg string, kv ...any) {
	t.logger.Warn(msg, kv...)
}

// LogDebug logs a debug message with the given key/value pairs.
func (t *Telemetry) LogDebug(msg string, kv ...any) {
	t.logger.Debug(msg, kv...)
}

// LogError logs err alongside msg and the given key/value pairs.
func (t *Telemetry) LogError(msg string, err error, kv ...any) {
	args := append([]any{"error", err}, kv...)
	t.logger.Error(msg, args...)
}

// NewCounter registers an asynchronous counter named name whose value is
// produced by callback whenever metrics are collected.
func (t *Telemetry) NewCounter(name string, callback func() int64) {
	_, err := t.meter.Int64ObservableCounter(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(callback())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to register counter", err, "metric", name)
	}
}

// NewGauge registers an asynchronous gauge named name whose value is
// produced by callback whenever metrics are collected.
func (t *Telemetry) NewGauge(name string, callback func() int64) {
	_, err := t.meter.Int64ObservableGauge(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(callback())
			return nil
		}),
	)
	if err != nil {
		t.LogError("failed to register gauge", err, "metric", name)
	}
}

// Collect gathers every registered metric's current value. It is meant
// for tests, not for a production export path; there is no collector
// behind it.
func (t *Telemetry) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.reader.Collect(ctx, &rm)
	return rm, err
}
