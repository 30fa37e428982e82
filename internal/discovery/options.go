package discovery

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

const (
	DefaultMaxGroupSize = 16
	DefaultHistorySize  = 50
	DefaultEventBuffer  = 100
)

type config struct {
	maxGroupSize int
	historySize  int
	eventBuffer  int
	logger       *slog.Logger
	msink        metrics.MetricSink
	labels       []metrics.Label
}

// Option to pass to New.
type Option func(*config)

// WithMaxGroupSize bounds the identity pool of every group.
func WithMaxGroupSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxGroupSize = n
		}
	}
}

// WithHistorySize sets how many recent messages each group keeps.
func WithHistorySize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.historySize = n
		}
	}
}

// WithEventBuffer sets the capacity of each subscriber's event queue. A
// subscriber whose queue is full misses events instead of stalling the
// broadcaster.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

// WithLogger specifies which logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricSink chooses how to collect the metrics emitted by the service.
func WithMetricSink(ms metrics.MetricSink, labels ...metrics.Label) Option {
	return func(c *config) {
		if ms != nil {
			c.msink = ms
		}
		c.labels = labels
	}
}

func defaultConfig() config {
	return config{
		maxGroupSize: DefaultMaxGroupSize,
		historySize:  DefaultHistorySize,
		eventBuffer:  DefaultEventBuffer,
		logger:       slog.Default(),
		msink:        &metrics.BlackholeSink{},
	}
}
