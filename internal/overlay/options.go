package overlay

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/hashicorp/go-metrics"

	"groupchat/internal/chat"
)

const (
	DefaultSendTimeout = 2 * time.Second
	DefaultHistorySize = 50
)

// Config identifies the local user and tunes the send path.
type Config struct {
	// UserID is the name announced to the group.
	UserID string
	// Addr is the address other peers dial to reach this client.
	Addr string
	// SendTimeout bounds each direct delivery. A timeout counts as an
	// unreachable peer.
	SendTimeout time.Duration
	// HistorySize is the number of recent messages kept locally.
	HistorySize int
	// LogToDiscovery also records every sent message in the discovery
	// service's history so late joiners can catch up without a peer.
	LogToDiscovery bool
}

func (c *Config) setDefaults() {
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
}

func (c Config) validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidConfig)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: advertised address is required", ErrInvalidConfig)
	}
	return nil
}

// MessageHandler receives every message delivered to the local user,
// including ones caught up from history.
type MessageHandler func(chat.Message)

type options struct {
	logger     *slog.Logger
	msink      metrics.MetricSink
	labels     []metrics.Label
	onMessage  MessageHandler
	newBackOff func() backoff.BackOff
}

// Option to pass to New.
type Option func(*options)

// WithLogger specifies which logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricSink chooses how to collect the metrics emitted by the overlay.
func WithMetricSink(ms metrics.MetricSink, labels ...metrics.Label) Option {
	return func(o *options) {
		if ms != nil {
			o.msink = ms
		}
		o.labels = labels
	}
}

// WithMessageHandler sets the callback for received messages.
func WithMessageHandler(fn MessageHandler) Option {
	return func(o *options) {
		if fn != nil {
			o.onMessage = fn
		}
	}
}

// WithBackOff sets the policy used to resubscribe to membership events
// after the stream breaks.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(o *options) {
		if fn != nil {
			o.newBackOff = fn
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func defaultOptions() options {
	return options{
		logger:     slog.Default(),
		msink:      &metrics.BlackholeSink{},
		onMessage:  func(chat.Message) {},
		newBackOff: defaultBackOff,
	}
}
