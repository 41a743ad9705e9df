package mqtiny

import (
	"fmt"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// PublishOptions holds configuration for a publish operation.
type PublishOptions struct {
	QoS    QoS
	Retain bool
}

// PublishOption is a functional option for configuring a PUBLISH packet.
type PublishOption func(*PublishOptions)

// WithQoS sets the Quality of Service level for the publish.
//
// QoS levels:
//   - 0: At most once delivery (fire and forget)
//   - 1: At least once delivery (acknowledged)
//   - 2: Exactly once delivery (assured)
//
// Default is QoS 0.
func WithQoS(qos QoS) PublishOption {
	return func(o *PublishOptions) {
		o.QoS = qos
	}
}

// WithRetain sets the retain flag for the publish.
//
// When true, the server stores the message and delivers it to future
// subscribers of the topic.
//
// Default is false.
func WithRetain(retain bool) PublishOption {
	return func(o *PublishOptions) {
		o.Retain = retain
	}
}

// Publish encodes a PUBLISH into the transmit buffer and writes it.
//
// QoS 1 and QoS 2 messages occupy a packet-id slot until the exchange
// completes; the packet id is returned (0 for QoS 0). Publish does not wait
// for acknowledgments, Poll processes them.
//
// Errors:
//   - ErrNotConnected outside the Connected state
//   - ErrInvalidTopic for empty topics or topics with wildcards
//   - ErrOutOfPacketIds when every slot is taken
//   - ErrBufferOverflow when the packet does not fit the transmit buffer
//
// None of these change any state. A write failure returns an ErrTransport
// error and leaves the client Disconnected.
func (c *Client) Publish(topic string, payload []byte, opts ...PublishOption) (uint16, error) {
	if c.state != Connected {
		return 0, ErrNotConnected
	}

	var o PublishOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.QoS.Valid() {
		return 0, fmt.Errorf("invalid QoS %d", o.QoS)
	}
	if err := validateTopicName(topic, c.opts.MaxTopicLength); err != nil {
		return 0, err
	}

	pkt := packets.PublishPacket{
		QoS:     uint8(o.QoS),
		Retain:  o.Retain,
		Topic:   []byte(topic),
		Payload: payload,
		Version: c.opts.ProtocolVersion,
	}

	var slot *inflightSlot
	if o.QoS > AtMostOnce {
		state := slotAwaitPuback
		if o.QoS == ExactlyOnce {
			state = slotAwaitPubrec
		}
		var err error
		if slot, err = c.inflight.allocate(state, c.opts.now()); err != nil {
			return 0, err
		}
		pkt.PacketID = slot.id
	}

	n, err := pkt.Encode(c.tx)
	if err != nil {
		if slot != nil {
			c.inflight.release(slot)
		}
		return 0, err
	}

	// Kept for resending with DUP after a reconnect.
	if slot != nil && cap(slot.msg) >= n {
		slot.msg = append(slot.msg[:0], c.tx[:n]...)
	}

	if err := c.write(c.tx[:n], packets.PUBLISH); err != nil {
		return 0, err
	}
	return pkt.PacketID, nil
}
