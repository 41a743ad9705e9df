package modular

import (
	"io"
	"log/slog"
	"time"

	"github.com/gonzalop/mqtiny"
)

// Default runtime sizes.
const (
	DefaultOutboxCapacity = 8
	DefaultPayloadSize    = 256
	DefaultMaxTopics      = mqtiny.DefaultSubscriptionCapacity
	DefaultHandleDepth    = 8
	DefaultMaxWait        = time.Second
)

type runtimeOptions struct {
	OutboxCapacity int
	TopicSize      int
	PayloadSize    int
	MaxTopics      int
	HandleDepth    int

	// QoS requested for every registered filter
	SubscribeQoS mqtiny.QoS

	// Upper bound of one poll wait, which is also the latency of Handle requests
	MaxWait time.Duration

	Logger *slog.Logger
	now    func() time.Time
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeOptions)

// WithOutboxCapacity sets how many messages modules can queue per iteration.
func WithOutboxCapacity(n int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.OutboxCapacity = n
	}
}

// WithTopicSize sets the longest topic a module can queue. Default is MaxTopicLen.
func WithTopicSize(n int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.TopicSize = n
	}
}

// WithPayloadSize sets the largest payload a module can queue.
func WithPayloadSize(n int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.PayloadSize = n
	}
}

// WithMaxTopics sets how many distinct filters the modules can register.
// It is capped at the client's subscription capacity.
func WithMaxTopics(n int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.MaxTopics = n
	}
}

// WithHandleDepth sets the queue depth of the Runtime's Handle.
func WithHandleDepth(n int) RuntimeOption {
	return func(o *runtimeOptions) {
		o.HandleDepth = n
	}
}

// WithSubscribeQoS sets the QoS requested for registered filters.
// Default is QoS 0.
func WithSubscribeQoS(qos mqtiny.QoS) RuntimeOption {
	return func(o *runtimeOptions) {
		o.SubscribeQoS = qos
	}
}

// WithMaxWait bounds how long one iteration waits for incoming data.
func WithMaxWait(d time.Duration) RuntimeOption {
	return func(o *runtimeOptions) {
		o.MaxWait = d
	}
}

// WithLogger sets the logger for runtime events.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.Logger = logger
	}
}

// WithClock sets the time source for module deadlines. It should be the
// same source the client uses.
func WithClock(now func() time.Time) RuntimeOption {
	return func(o *runtimeOptions) {
		o.now = now
	}
}

func defaultRuntimeOptions() *runtimeOptions {
	return &runtimeOptions{
		OutboxCapacity: DefaultOutboxCapacity,
		TopicSize:      MaxTopicLen,
		PayloadSize:    DefaultPayloadSize,
		MaxTopics:      DefaultMaxTopics,
		HandleDepth:    DefaultHandleDepth,
		MaxWait:        DefaultMaxWait,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
	}
}
