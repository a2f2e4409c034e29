package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int // -1 waits for all replicas
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	// KeyHash routes equal keys to the same partition.
	KeyHash bool
}

func (c *ProducerConfig) setDefaults() {
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = time.Second
	}
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	// StartLatest starts a new group at the end of the topic instead of the beginning.
	StartLatest bool
	// Workers is the number of partition shards per topic. Messages of one
	// partition are always handled by the same shard, in offset order.
	Workers    int
	BufferSize int
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	DLQTopic   string
	MinBytes   int
	MaxBytes   int
}

func (c *ConsumerConfig) setDefaults() {
	if c.GroupID == "" {
		c.GroupID = "astrozee"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 16
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
}

// Option configures a Producer or a Consumer.
type Option func(*options)

type options struct {
	l    *applogger.Logger
	reg  prometheus.Registerer
	hook Hook
}

func WithLogger(l *applogger.Logger) Option {
	return func(o *options) { o.l = l }
}

// WithRegisterer registers client metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithHook installs hooks run around every handled message. Consumer only.
func WithHook(h Hook) Option {
	return func(o *options) { o.hook = h }
}

func buildOptions(opts []Option) options {
	o := options{reg: prometheus.DefaultRegisterer, hook: Hooks{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
