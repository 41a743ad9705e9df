package mqtiny

import (
	"fmt"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// Subscribe adds filter to the subscription table and sends a SUBSCRIBE for
// it. The SUBACK is processed by Poll; a failure return code marks the entry
// SubscriptionRejected. It returns the packet id of the SUBSCRIBE.
//
// If the table is full, the id table is full, or the packet does not fit the
// transmit buffer, nothing is sent and the table is left as it was.
func (c *Client) Subscribe(filter string, qos QoS) (uint16, error) {
	if c.state != Connected {
		return 0, ErrNotConnected
	}

	prev, existed := c.subs.Lookup(filter)
	if err := c.subs.Add(filter, qos); err != nil {
		return 0, err
	}

	id, err := c.sendSubscribe(filter)
	if err != nil && !IsConnectionError(err) {
		if existed {
			c.subs.restore(prev)
		} else {
			c.subs.Remove(filter)
		}
	}
	return id, err
}

// SubscribeAll sends every filter of the table, in table order. This is the
// re-subscription pass after (re)connecting. Filters are packed into as few
// SUBSCRIBE packets as the transmit buffer allows; it returns the packet id
// of the last one. With an empty table it sends nothing and returns 0.
//
// A filter that does not fit the transmit buffer on its own, or running out
// of packet ids, stops the pass with an error. Packets sent before that stay
// in flight.
func (c *Client) SubscribeAll() (uint16, error) {
	if c.state != Connected {
		return 0, ErrNotConnected
	}
	if c.subs.Len() == 0 {
		return 0, nil
	}

	var (
		id    uint16
		err   error
		batch = make([]string, 0, c.subs.Len())
		sized = packets.SubscribePacket{Version: c.opts.ProtocolVersion}
	)
	for sub := range c.subs.All() {
		sized.Filters = append(sized.Filters, packets.Filter{Topic: sub.Filter})
		if len(batch) > 0 && sized.EncodedLen() > len(c.tx) {
			if id, err = c.sendSubscribe(batch...); err != nil {
				return id, err
			}
			batch = batch[:0]
			sized.Filters = append(sized.Filters[:0], packets.Filter{Topic: sub.Filter})
		}
		batch = append(batch, sub.Filter)
	}
	return c.sendSubscribe(batch...)
}

func (c *Client) sendSubscribe(filters ...string) (uint16, error) {
	slot, err := c.inflight.allocate(slotAwaitSuback, c.opts.now())
	if err != nil {
		return 0, err
	}

	pkt := packets.SubscribePacket{
		PacketID: slot.id,
		Filters:  make([]packets.Filter, 0, len(filters)),
		Version:  c.opts.ProtocolVersion,
	}
	for _, f := range filters {
		sub, _ := c.subs.Lookup(f)
		pkt.Filters = append(pkt.Filters, packets.Filter{Topic: f, QoS: uint8(sub.QoS)})
		slot.filters = append(slot.filters, f)
	}

	n, err := pkt.Encode(c.tx)
	if err != nil {
		c.inflight.release(slot)
		return 0, err
	}

	for _, f := range filters {
		c.subs.markSent(f, slot.id)
	}
	if err := c.write(c.tx[:n], packets.SUBSCRIBE); err != nil {
		return 0, err
	}
	return slot.id, nil
}

// Unsubscribe sends an UNSUBSCRIBE for the given filters. They are removed
// from the subscription table when the UNSUBACK arrives.
func (c *Client) Unsubscribe(filters ...string) (uint16, error) {
	if c.state != Connected {
		return 0, ErrNotConnected
	}
	if len(filters) == 0 {
		return 0, fmt.Errorf("%w: no topic filters", ErrInvalidTopic)
	}
	for _, f := range filters {
		if err := validateTopicFilter(f, c.opts.MaxTopicLength); err != nil {
			return 0, err
		}
	}

	slot, err := c.inflight.allocate(slotAwaitUnsuback, c.opts.now())
	if err != nil {
		return 0, err
	}
	slot.filters = append(slot.filters, filters...)

	pkt := packets.UnsubscribePacket{
		PacketID: slot.id,
		Topics:   filters,
		Version:  c.opts.ProtocolVersion,
	}
	n, err := pkt.Encode(c.tx)
	if err != nil {
		c.inflight.release(slot)
		return 0, err
	}

	if err := c.write(c.tx[:n], packets.UNSUBSCRIBE); err != nil {
		return 0, err
	}
	return slot.id, nil
}
