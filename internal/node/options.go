package node

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"

	"groupchat/internal/overlay"
)

type options struct {
	logger    *slog.Logger
	msink     metrics.MetricSink
	onMessage overlay.MessageHandler
}

// Option to pass to NewDiscoveryNode or NewPeerNode.
type Option func(*options)

// WithLogger specifies which logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricSink chooses where metrics go.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(o *options) {
		if ms != nil {
			o.msink = ms
		}
	}
}

// WithMessageHandler sets the callback for messages received by a peer node.
func WithMessageHandler(fn overlay.MessageHandler) Option {
	return func(o *options) {
		o.onMessage = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		msink:  &metrics.BlackholeSink{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
