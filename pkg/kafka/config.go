package kafka

import (
	"fmt"
	"time"
)

// SignalTopics names the topic each decision mode publishes to. Simulation
// and live signals never share a topic.
type SignalTopics struct {
	Simulation string
	Live       string
}

// For returns the topic for the given mode.
func (t SignalTopics) For(live bool) string {
	if live {
		return t.Live
	}
	return t.Simulation
}

// Delivery controls acknowledgement and retry behaviour of every publish.
type Delivery struct {
	RequiredAcks int // -1 waits for all in-sync replicas
	MaxAttempts  int
	Compression  string
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Async        bool
}

// Batching bounds how long and how much the writer buffers.
type Batching struct {
	Size   int
	Bytes  int
	Linger time.Duration
}

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers  []string
	Topics   SignalTopics
	Delivery Delivery
	Batching Batching
	// Messages keyed by symbol land on one partition so a consumer sees a
	// symbol's signals in order. LeastBytes drops that guarantee.
	LeastBytes bool
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Topics: SignalTopics{Simulation: "signals.simulation", Live: "signals.live"},
		Delivery: Delivery{
			RequiredAcks: -1,
			MaxAttempts:  3,
			Compression:  "snappy",
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
		Batching: Batching{Size: 100, Bytes: 1 << 20, Linger: 10 * time.Millisecond},
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers are required")
	}
	if c.Topics.Simulation == "" || c.Topics.Live == "" {
		return fmt.Errorf("simulation and live topics are required")
	}
	if c.Topics.Simulation == c.Topics.Live {
		return fmt.Errorf("simulation and live topics must differ, both are %q", c.Topics.Live)
	}
	return nil
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithSignalTopics overrides the per-mode topics. Empty names keep the default.
func WithSignalTopics(simulation, live string) ProducerOption {
	return func(c *ProducerConfig) {
		if simulation != "" {
			c.Topics.Simulation = simulation
		}
		if live != "" {
			c.Topics.Live = live
		}
	}
}

// WithDelivery sets acks, retries and compression. Zero values keep defaults.
func WithDelivery(acks, attempts int, compression string) ProducerOption {
	return func(c *ProducerConfig) {
		if acks != 0 {
			c.Delivery.RequiredAcks = acks
		}
		if attempts > 0 {
			c.Delivery.MaxAttempts = attempts
		}
		if compression != "" {
			c.Delivery.Compression = compression
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.Delivery.WriteTimeout = write
		}
		if read > 0 {
			c.Delivery.ReadTimeout = read
		}
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Delivery.Async = async }
}

func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.Batching.Size = size
		}
		if bytes > 0 {
			c.Batching.Bytes = bytes
		}
		if linger > 0 {
			c.Batching.Linger = linger
		}
	}
}

// WithLeastBytes balances by partition load instead of by symbol key.
func WithLeastBytes() ProducerOption {
	return func(c *ProducerConfig) { c.LeastBytes = true }
}
