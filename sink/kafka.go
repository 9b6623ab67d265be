// Package sink implements reporting sinks that a driver.Drain callback
// can forward consumed rows to: structured events on Kafka, or time
// series rows in QuestDB.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kessler-oss/gridbuf/internal/telemetry"
)

// KafkaConfig configures a Kafka sink.
type KafkaConfig struct {
	// Brokers is the list of Kafka brokers to connect to.
	//
	// Default: []string{"localhost:9092"}
	Brokers []string

	// Topic every row is published to.
	Topic string

	// MaxAttempts bounds how many times the writer retries a single
	// write before giving up.
	//
	// Default: 10
	MaxAttempts int

	// BatchSize is the target number of messages buffered before a
	// partition write.
	//
	// Default: 100
	BatchSize int

	// BatchTimeout bounds how long an incomplete batch is held before
	// being flushed anyway.
	//
	// Default: 1s
	BatchTimeout time.Duration
}

// DefaultKafkaConfig returns the default Kafka sink configuration for
// topic.
func DefaultKafkaConfig(topic string) *KafkaConfig {
	return &KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        topic,
		MaxAttempts:  10,
		BatchSize:    100,
		BatchTimeout: time.Second,
	}
}

// Kafka publishes rows drained from a grid as Kafka messages.
type Kafka struct {
	tel    *telemetry.Telemetry
	writer *kafkago.Writer

	published int64
	errors    int64
}

// NewKafka connects a Kafka sink per cfg. The underlying writer is
// created lazily on first use by kafka-go, so NewKafka itself cannot
// fail on an unreachable broker.
func NewKafka(cfg *KafkaConfig) *Kafka {
	tel := telemetry.NewTelemetry("sink", "kafka")

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.RoundRobin{},
		MaxAttempts:  cfg.MaxAttempts,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        false,
	}

	k := &Kafka{tel: tel, writer: writer}
	tel.NewCounter("published", k.getPublished)
	tel.NewCounter("errors", k.getErrors)

	return k
}

func (k *Kafka) getPublished() int64 { return k.published }
func (k *Kafka) getErrors() int64    { return k.errors }

// PublishRow marshals row as a plain comma-separated byte value keyed by
// absRow and publishes it to the sink's topic, retrying transient
// connection failures with exponential backoff.
func (k *Kafka) PublishRow(ctx context.Context, absRow int64, row []int64) error {
	key := fmt.Appendf(nil, "%d", absRow)
	value := formatRow(row)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		writeErr := k.writer.WriteMessages(ctx, kafkago.Message{Key: key, Value: value})
		if writeErr != nil {
			k.tel.LogWarn("kafka publish failed, retrying", "abs_row", absRow, "error", writeErr)
			return struct{}{}, writeErr
		}
		return struct{}{}, nil
	}, backoff.WithMaxTries(5))

	if err != nil {
		k.errors++
		k.tel.LogError("kafka publish gave up", err, "abs_row", absRow)
		return err
	}

	k.published++
	return nil
}

// Close flushes and closes the underlying writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func formatRow(row []int64) []byte {
	buf := make([]byte, 0, len(row)*8)
	for i, v := range row {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = fmt.Appendf(buf, "%d", v)
	}
	return buf
}
