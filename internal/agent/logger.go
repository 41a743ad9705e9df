package agent

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/modular"
)

// maxLoggedPayload bounds the payload bytes written per message.
const maxLoggedPayload = 64

// Logger logs every message whose topic matches one of its filters.
type Logger struct {
	filters []string
	logger  *slog.Logger
	logged  uint64
}

// NewLogger returns a module subscribing to filters.
func NewLogger(logger *slog.Logger, filters ...string) *Logger {
	return &Logger{filters: filters, logger: logger}
}

// Logged returns the number of messages logged.
func (l *Logger) Logged() uint64 { return l.logged }

func (l *Logger) Register(tc modular.TopicCollector) {
	for _, f := range l.filters {
		if !tc.Add(f) {
			l.logger.Warn("filter not registered", "filter", f)
		}
	}
}

func (l *Logger) OnMessage(msg *mqtiny.Publish) {
	for _, f := range l.filters {
		if !msg.Matches(f) {
			continue
		}
		l.logged++
		l.logger.Info("message",
			"topic", msg.TopicString(),
			"qos", msg.QoS,
			"retain", msg.Retain,
			"size", len(msg.Payload),
			"payload", preview(msg.Payload))
		return
	}
}

func (l *Logger) OnTick(modular.PublishOutbox) time.Duration {
	return time.Hour
}

// preview returns payload as text, cut at maxLoggedPayload bytes, or a
// placeholder when it is not UTF-8.
func preview(payload []byte) string {
	if !utf8.Valid(payload) {
		return "<binary>"
	}
	if len(payload) <= maxLoggedPayload {
		return string(payload)
	}
	cut := maxLoggedPayload
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return string(payload[:cut]) + "..."
}
