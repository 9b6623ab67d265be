package config

import "runtime"

// Default configuration values for the driver pool.
const (
	DefaultPoolProducers = 1
	DefaultPoolConsumers = 1
)

// DefaultPoolMaxWorkers returns the default maximum number of producers
// or consumers (number of CPUs).
func DefaultPoolMaxWorkers() int {
	return runtime.NumCPU()
}

// Pool represents the configuration for the driver's producer and
// consumer worker counts.
type Pool struct {
	// Producers is the number of concurrent producer goroutines.
	Producers int

	// Consumers is the number of concurrent consumer goroutines.
	Consumers int
}

// NewPool returns the default driver pool configuration: one producer,
// one consumer.
func NewPool() *Pool {
	return &Pool{
		Producers: DefaultPoolProducers,
		Consumers: DefaultPoolConsumers,
	}
}

// Validate validates the configuration.
func (p *Pool) Validate(ac *AnomalyCollector) {
	CheckNotNegative(ac, "Producers", &p.Producers, DefaultPoolProducers)
	CheckNotGreaterThan(ac, "Producers", "MaxWorkers", &p.Producers, DefaultPoolMaxWorkers())

	CheckNotNegative(ac, "Consumers", &p.Consumers, DefaultPoolConsumers)
	CheckNotGreaterThan(ac, "Consumers", "MaxWorkers", &p.Consumers, DefaultPoolMaxWorkers())
}
