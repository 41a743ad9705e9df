package mqtiny

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// Poll runs one step of the connection with the configured read timeout.
// See PollTimeout.
func (c *Client) Poll(ctx context.Context) (*Publish, error) {
	return c.PollTimeout(ctx, c.opts.ReadTimeout)
}

// PollTimeout runs one step of the connection: keep-alive and handshake
// timers, at most one transport read waiting no longer than wait (or the
// next protocol deadline, whichever is sooner), and the handling of every
// complete packet buffered so far.
//
// It returns a non-nil *Publish when an application message arrived, and
// (nil, nil) when nothing user-visible happened. Acknowledgments for
// incoming QoS 1 and QoS 2 messages are written before the Publish is
// returned. The Publish borrows the receive buffer; it is invalidated by the
// next call to Poll or PollTimeout.
//
// Connection-level errors leave the client Disconnected. Outside a
// connection PollTimeout returns ErrNotConnected.
func (c *Client) PollTimeout(ctx context.Context, wait time.Duration) (*Publish, error) {
	if c.state == Disconnected {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Ends the borrow window of the previous Publish.
	c.release()

	now := c.opts.now()
	if err := c.checkTimers(now); err != nil {
		return nil, err
	}
	if d := c.NextDeadline(); !d.IsZero() {
		wait = min(wait, max(d.Sub(now), 0))
	}

	state := c.state
	read := false
	for {
		pkt, n, err := packets.Decode(c.rx[:c.rxLen], c.opts.ProtocolVersion)
		if errors.Is(err, packets.ErrIncomplete) {
			if read {
				return nil, nil
			}
			if err := c.fill(wait); err != nil {
				return nil, err
			}
			read = true
			continue
		}
		if err != nil {
			return nil, c.fail(fmt.Errorf("%w: %w", ErrProtocol, err))
		}

		c.rxConsumed = n
		c.packetsReceived++
		c.bytesReceived += uint64(n)
		c.opts.Logger.Debug("received packet", "type", packets.PacketNames[pkt.Type()], "bytes", n)

		pub, err := c.handleIncoming(pkt)
		if err != nil {
			return nil, err
		}
		if pub != nil {
			return pub, nil
		}
		c.release()
		if c.state != state {
			return nil, nil
		}
	}
}

// release drops the bytes of the last handled packet and moves whatever
// follows them to the front of the receive buffer.
func (c *Client) release() {
	if c.rxConsumed == 0 {
		return
	}
	c.rxLen = copy(c.rx, c.rx[c.rxConsumed:c.rxLen])
	c.rxConsumed = 0
}

// fill performs one transport read into the free part of the receive buffer.
func (c *Client) fill(wait time.Duration) error {
	if c.rxLen > 0 {
		header, total, err := packets.PeekHeader(c.rx[:c.rxLen])
		if err == nil && total > len(c.rx) {
			return c.fail(fmt.Errorf("%w: %w: incoming %s of %d bytes exceeds receive buffer of %d",
				ErrProtocol, ErrBufferOverflow, packets.PacketNames[header.PacketType], total, len(c.rx)))
		}
	}

	n, err := c.transport.Read(c.rx[c.rxLen:], wait)
	if err != nil {
		return c.fail(fmt.Errorf("%w: read: %w", ErrTransport, err))
	}
	c.rxLen += n
	return nil
}

// checkTimers enforces the CONNACK timeout and the keep-alive schedule.
func (c *Client) checkTimers(now time.Time) error {
	switch c.state {
	case Connecting:
		if !now.Before(c.connectDeadline) {
			return c.fail(fmt.Errorf("%w: no CONNACK within %s", ErrTimeout, c.opts.ConnectTimeout))
		}

	case Connected:
		if c.opts.KeepAlive <= 0 {
			return nil
		}
		half := c.opts.KeepAlive / 2
		if !c.pingSentAt.IsZero() {
			if now.Sub(c.pingSentAt) >= half {
				return c.fail(fmt.Errorf("%w: no PINGRESP within %s", ErrTimeout, half))
			}
			return nil
		}
		if now.Sub(c.lastSent) >= half {
			if err := c.send(&packets.PingreqPacket{}); err != nil {
				return err
			}
			c.pingSentAt = now
		}
	}
	return nil
}

// handleIncoming applies one packet to the state machine.
func (c *Client) handleIncoming(pkt packets.Packet) (*Publish, error) {
	if c.state == Connecting {
		connack, ok := pkt.(*packets.ConnackPacket)
		if !ok {
			return nil, c.fail(fmt.Errorf("%w: expected CONNACK, got %s", ErrProtocol, packets.PacketNames[pkt.Type()]))
		}
		return nil, c.handleConnack(connack)
	}

	switch p := pkt.(type) {
	case *packets.PublishPacket:
		return c.handlePublish(p)

	case *packets.PubackPacket:
		return nil, c.check(c.inflight.puback(p.PacketID))

	case *packets.PubrecPacket:
		if err := c.inflight.pubrec(p.PacketID, c.opts.now()); err != nil {
			return nil, c.fail(err)
		}
		return nil, c.send(&packets.PubrelPacket{PacketID: p.PacketID, Version: c.opts.ProtocolVersion})

	case *packets.PubrelPacket:
		c.inbound.remove(p.PacketID)
		return nil, c.send(&packets.PubcompPacket{PacketID: p.PacketID, Version: c.opts.ProtocolVersion})

	case *packets.PubcompPacket:
		return nil, c.check(c.inflight.pubcomp(p.PacketID))

	case *packets.SubackPacket:
		return nil, c.handleSuback(p)

	case *packets.UnsubackPacket:
		return nil, c.handleUnsuback(p)

	case *packets.PingrespPacket:
		c.pingSentAt = time.Time{}
		return nil, nil

	case *packets.DisconnectPacket:
		return nil, c.fail(&MqttError{
			ReasonCode: ReasonCode(p.ReasonCode),
			Message:    "server sent DISCONNECT",
			Parent:     ErrTransport,
		})

	default:
		return nil, c.fail(fmt.Errorf("%w: unexpected %s from server", ErrProtocol, packets.PacketNames[pkt.Type()]))
	}
}

func (c *Client) check(err error) error {
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// handlePublish acknowledges an incoming PUBLISH and exposes it as a Publish.
// A QoS 2 message whose id still awaits PUBREL is acknowledged again but
// not delivered a second time.
func (c *Client) handlePublish(p *packets.PublishPacket) (*Publish, error) {
	if len(p.Topic) == 0 {
		return nil, c.fail(fmt.Errorf("%w: PUBLISH without topic name", ErrProtocol))
	}
	if bytes.ContainsAny(p.Topic, "+#") {
		return nil, c.fail(fmt.Errorf("%w: wildcard in PUBLISH topic %q", ErrProtocol, p.Topic))
	}

	switch p.QoS {
	case packets.QoS1:
		if err := c.send(&packets.PubackPacket{PacketID: p.PacketID, Version: c.opts.ProtocolVersion}); err != nil {
			return nil, err
		}

	case packets.QoS2:
		if c.inbound.contains(p.PacketID) {
			c.opts.Logger.Debug("duplicate QoS 2 message", "packet_id", p.PacketID)
			return nil, c.send(&packets.PubrecPacket{PacketID: p.PacketID, Version: c.opts.ProtocolVersion})
		}
		if !c.inbound.add(p.PacketID) {
			// Not acknowledged, so the server will deliver it again.
			c.opts.Logger.Warn("inbound QoS 2 table full, dropping message", "packet_id", p.PacketID)
			return nil, nil
		}
		if err := c.send(&packets.PubrecPacket{PacketID: p.PacketID, Version: c.opts.ProtocolVersion}); err != nil {
			return nil, err
		}
	}

	c.pub = Publish{
		Topic:    p.Topic,
		Payload:  p.Payload,
		QoS:      QoS(p.QoS),
		Retain:   p.Retain,
		Dup:      p.Dup,
		PacketID: p.PacketID,
	}
	return &c.pub, nil
}

// handleSuback applies return codes to the subscription table. Failure codes
// mark the entry rejected; they are not a connection error.
func (c *Client) handleSuback(p *packets.SubackPacket) error {
	s, err := c.inflight.expect(p.PacketID, slotAwaitSuback, "SUBACK")
	if err != nil {
		return c.fail(err)
	}
	if len(p.ReturnCodes) != len(s.filters) {
		return c.fail(fmt.Errorf("%w: SUBACK carries %d return codes for %d filters",
			ErrProtocol, len(p.ReturnCodes), len(s.filters)))
	}

	for i, code := range p.ReturnCodes {
		if !c.subs.acknowledge(s.filters[i], p.PacketID, code) {
			c.opts.Logger.Warn("subscription rejected", "filter", s.filters[i], "return_code", code)
		}
	}
	c.inflight.release(s)
	return nil
}

// handleUnsuback removes the unsubscribed filters from the table.
func (c *Client) handleUnsuback(p *packets.UnsubackPacket) error {
	s, err := c.inflight.expect(p.PacketID, slotAwaitUnsuback, "UNSUBACK")
	if err != nil {
		return c.fail(err)
	}
	for _, filter := range s.filters {
		c.subs.Remove(filter)
	}
	c.inflight.release(s)
	return nil
}
