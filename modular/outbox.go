package modular

import (
	"errors"
	"fmt"

	"github.com/gonzalop/mqtiny"
)

// ErrOutboxFull is returned by Outbox.Publish and Handle.Publish when the
// queue has no free slot. The message is dropped.
var ErrOutboxFull = errors.New("outbox full")

// Entry is one queued message. Payload aliases the queue's storage and is
// only valid inside the Drain callback.
type Entry struct {
	Topic   string
	Payload []byte
	QoS     mqtiny.QoS
}

// Outbox is a fixed-capacity FIFO of messages. Every slot owns a payload
// buffer allocated up front, so queueing never allocates.
type Outbox struct {
	slots       []Entry
	head        int
	n           int
	topicSize   int
	payloadSize int
}

// NewOutbox returns an outbox of capacity slots, accepting topics up to
// topicSize bytes and payloads up to payloadSize bytes. It panics if a size
// is not positive.
func NewOutbox(capacity, topicSize, payloadSize int) *Outbox {
	if capacity <= 0 || topicSize <= 0 || payloadSize <= 0 {
		panic(fmt.Sprintf("modular: invalid outbox size %d/%d/%d", capacity, topicSize, payloadSize))
	}
	o := &Outbox{
		slots:       make([]Entry, capacity),
		topicSize:   topicSize,
		payloadSize: payloadSize,
	}
	for i := range o.slots {
		o.slots[i].Payload = make([]byte, 0, payloadSize)
	}
	return o
}

// Publish copies the message into the next free slot.
//
// It returns ErrOutboxFull when every slot is taken, and an error matching
// mqtiny.ErrBufferOverflow when the topic or payload is larger than the
// slot. Queued entries are never touched by a failed call.
func (o *Outbox) Publish(topic string, payload []byte, qos mqtiny.QoS) error {
	if len(topic) > o.topicSize {
		return fmt.Errorf("%w: topic of %d bytes exceeds outbox limit %d", mqtiny.ErrBufferOverflow, len(topic), o.topicSize)
	}
	if len(payload) > o.payloadSize {
		return fmt.Errorf("%w: payload of %d bytes exceeds outbox limit %d", mqtiny.ErrBufferOverflow, len(payload), o.payloadSize)
	}
	if o.n == len(o.slots) {
		return ErrOutboxFull
	}

	s := &o.slots[(o.head+o.n)%len(o.slots)]
	s.Topic = topic
	s.Payload = append(s.Payload[:0], payload...)
	s.QoS = qos
	o.n++
	return nil
}

// Drain hands every queued entry to send, oldest first, and empties the
// queue. If send returns an error, the entries not yet sent are discarded
// and the error is returned.
func (o *Outbox) Drain(send func(Entry) error) error {
	for o.n > 0 {
		s := &o.slots[o.head]
		o.head = (o.head + 1) % len(o.slots)
		o.n--

		err := send(*s)
		s.Topic = ""
		if err != nil {
			o.Reset()
			return err
		}
	}
	o.head = 0
	return nil
}

// Reset discards every queued entry.
func (o *Outbox) Reset() {
	for i := range o.slots {
		o.slots[i].Topic = ""
		o.slots[i].Payload = o.slots[i].Payload[:0]
	}
	o.head, o.n = 0, 0
}

// Len returns the number of queued entries.
func (o *Outbox) Len() int { return o.n }

// Cap returns the fixed capacity.
func (o *Outbox) Cap() int { return len(o.slots) }
