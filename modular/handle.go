package modular

import (
	"context"
	"fmt"
	"slices"

	"github.com/gonzalop/mqtiny"
)

// Handle lets goroutines other than the Runtime's publish messages. It is
// safe for concurrent use. Requests are queued in a bounded channel and sent
// by the Runtime after the module outbox, in the order they were queued.
//
// A queued request waits at most for the Runtime's maximum poll wait.
type Handle struct {
	ch chan Entry
}

func newHandle(depth int) *Handle {
	return &Handle{ch: make(chan Entry, depth)}
}

// TryPublish queues a copy of the message without blocking. It returns
// ErrOutboxFull when the queue is full.
func (h *Handle) TryPublish(topic string, payload []byte, qos mqtiny.QoS) error {
	if !qos.Valid() {
		return fmt.Errorf("invalid QoS %d", qos)
	}
	select {
	case h.ch <- Entry{Topic: topic, Payload: slices.Clone(payload), QoS: qos}:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Publish queues a copy of the message, waiting for room until ctx is done.
func (h *Handle) Publish(ctx context.Context, topic string, payload []byte, qos mqtiny.QoS) error {
	if !qos.Valid() {
		return fmt.Errorf("invalid QoS %d", qos)
	}
	select {
	case h.ch <- Entry{Topic: topic, Payload: slices.Clone(payload), QoS: qos}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued requests.
func (h *Handle) Pending() int {
	return len(h.ch)
}

// drain sends the requests queued when it starts. It stops at the first
// error, leaving later requests queued.
func (h *Handle) drain(send func(Entry) error) error {
	for range len(h.ch) {
		select {
		case e := <-h.ch:
			if err := send(e); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}
