package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "1,2,3", string(formatRow([]int64{1, 2, 3})))
	assert.Equal(t, "", string(formatRow(nil)))
	assert.Equal(t, "42", string(formatRow([]int64{42})))
}

func TestDefaultKafkaConfig(t *testing.T) {
	cfg := DefaultKafkaConfig("rows")
	assert.Equal(t, "rows", cfg.Topic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 10, cfg.MaxAttempts)
}
