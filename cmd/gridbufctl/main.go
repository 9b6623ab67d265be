// Command gridbufctl runs producers and consumers against a grid ring
// buffer for a fixed duration and reports throughput, grounded on the
// threaded driver program this library's acquisition protocol was
// distilled from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kessler-oss/gridbuf"
	"github.com/kessler-oss/gridbuf/driver"
	"github.com/kessler-oss/gridbuf/internal/config"
	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML configuration file; when set, -rows, -cols, -producers and -consumers are ignored")
		rows       = flag.Uint("rows", config.DefaultBufferRows, "number of ring rows")
		cols       = flag.Uint("cols", config.DefaultBufferCols, "number of columns per row")
		producers  = flag.Int("producers", config.DefaultPoolProducers, "number of producer goroutines")
		consumers  = flag.Int("consumers", config.DefaultPoolConsumers, "number of consumer goroutines")
		duration   = flag.Duration("duration", 5*time.Second, "how long to run before stopping")
	)
	flag.Parse()

	tel := telemetry.NewTelemetry("cmd", "gridbufctl")

	root := config.NewRoot()
	if *configPath != "" {
		loaded, err := config.Load(*configPath, tel)
		if err != nil {
			tel.LogError("failed to load config file", err, "path", *configPath)
			os.Exit(1)
		}
		root = loaded
	} else {
		root.Buffer.Rows = uint32(*rows)
		root.Buffer.Cols = uint32(*cols)
		root.Pool.Producers = *producers
		root.Pool.Consumers = *consumers
		config.NewValidator(tel).Validate(root)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runCtx, cancelRun := context.WithTimeout(ctx, *duration)
	defer cancelRun()

	g := gridbuf.NewFromConfig[int64](root.Buffer, gridbuf.WithName("gridbufctl"), gridbuf.WithMetrics())

	fill := func(absRow int64, row []int64) {
		cols := int64(len(row))
		for col := range row {
			row[col] = absRow*cols + int64(col)
		}
	}
	drain := func(int64, []int64) {}

	tel.LogInfo("running",
		"rows", root.Buffer.Rows, "cols", root.Buffer.Cols,
		"producers", root.Pool.Producers, "consumers", root.Pool.Consumers,
		"duration", *duration)

	start := time.Now()
	report := driver.Run(runCtx, g, root.Pool.Producers, root.Pool.Consumers, fill, drain)
	elapsed := time.Since(start)

	fmt.Printf("produced %d rows, consumed %d rows in %s (%.0f rows/s produced, %.0f rows/s consumed)\n",
		report.Produced, report.Consumed, elapsed,
		float64(report.Produced)/elapsed.Seconds(),
		float64(report.Consumed)/elapsed.Seconds(),
	)
}
