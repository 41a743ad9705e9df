package modular

import (
	"time"

	"github.com/gonzalop/mqtiny"
)

// PublishOutbox queues messages for the Runtime to publish.
//
// Publish copies topic and payload and returns at once. It never performs
// I/O; a full queue is reported with ErrOutboxFull and the message is dropped.
type PublishOutbox interface {
	Publish(topic string, payload []byte, qos mqtiny.QoS) error
}

// TopicCollector receives the topic filters a module subscribes to.
// Add copies the filter and reports whether it was accepted.
type TopicCollector interface {
	Add(filter string) bool
}

// Module is the capability set every module implements. All methods are
// called from the Runtime goroutine and must not block.
type Module interface {
	// Register adds the module's topic filters. It is called before every
	// subscription pass, so it may run more than once.
	Register(c TopicCollector)

	// OnMessage is called for every incoming message, whether or not it
	// matches the module's filters. msg is only valid during the call.
	OnMessage(msg *mqtiny.Publish)

	// OnTick does periodic work and returns the delay until the next tick.
	OnTick(out PublishOutbox) time.Duration
}

// Starter is implemented by modules that publish once a connection is up
// and subscriptions were sent.
type Starter interface {
	OnStart(out PublishOutbox)
}

// ImmediatePublisher is implemented by modules that answer messages. When
// NeedsImmediatePublish returns true after OnMessage, the module is ticked
// in the same iteration instead of waiting for its deadline.
type ImmediatePublisher interface {
	NeedsImmediatePublish() bool
}

// Noop is a module that does nothing and asks to be ticked once a minute.
type Noop struct{}

func (Noop) Register(TopicCollector)            {}
func (Noop) OnMessage(*mqtiny.Publish)          {}
func (Noop) OnTick(PublishOutbox) time.Duration { return time.Minute }

func start(m Module, out PublishOutbox) {
	if s, ok := m.(Starter); ok {
		s.OnStart(out)
	}
}

func needsImmediate(m Module) bool {
	ip, ok := m.(ImmediatePublisher)
	return ok && ip.NeedsImmediatePublish()
}
