package mqtiny

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// Client is an MQTT client that runs entirely inside the caller's goroutine.
//
// All buffers and tables are allocated by NewClient and never grow. The
// client performs network I/O only inside Connect, Poll, Publish, Subscribe,
// Unsubscribe and Disconnect. It is not safe for concurrent use; the modular
// package shows how several components share one client.
type Client struct {
	// Configuration
	opts *clientOptions

	transport Transport
	state     ConnectionState

	// Session state
	subs     *SubscriptionTable
	inflight *inflightTable
	inbound  *inboundTable

	// Single receive buffer. rx[:rxLen] holds received bytes; the first
	// rxConsumed of them belong to the packet handed out by the last Poll.
	rx         []byte
	rxLen      int
	rxConsumed int
	tx         []byte

	// Reused borrow view handed out by Poll
	pub Publish

	// Timers
	lastSent        time.Time
	pingSentAt      time.Time // zero when no PINGREQ is outstanding
	connectDeadline time.Time

	sessionPresent bool

	// Stats
	packetsSent     uint64
	packetsReceived uint64
	bytesSent       uint64
	bytesReceived   uint64
	connections     uint64
}

// ClientStats holds connection and throughput statistics.
type ClientStats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	Connections     uint64
	Inflight        int
	Subscriptions   int
	State           ConnectionState
}

// NewClient creates a client on top of transport. No I/O happens until Connect.
//
// NewClient panics if a capacity or buffer size option is not positive,
// since that is a programming error.
func NewClient(transport Transport, opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	for name, v := range map[string]int{
		"subscription capacity": options.SubscriptionCapacity,
		"inflight capacity":     options.InflightCapacity,
		"rx buffer size":        options.RxBufferSize,
		"tx buffer size":        options.TxBufferSize,
		"max topic length":      options.MaxTopicLength,
	} {
		if v <= 0 {
			panic(fmt.Sprintf("mqtiny: %s must be positive, got %d", name, v))
		}
	}
	if options.InflightCapacity > 65535 {
		panic("mqtiny: inflight capacity cannot exceed 65535")
	}

	msgSize := 0
	if !options.CleanSession {
		msgSize = options.TxBufferSize
	}

	subs := NewSubscriptionTable(options.SubscriptionCapacity)
	subs.maxLen = options.MaxTopicLength

	return &Client{
		opts:      options,
		transport: transport,
		subs:      subs,
		inflight:  newInflightTable(options.InflightCapacity, msgSize),
		inbound:   newInboundTable(options.InflightCapacity),
		rx:        make([]byte, options.RxBufferSize),
		tx:        make([]byte, options.TxBufferSize),
	}
}

// Options returns the connection options the client was built with.
func (c *Client) Options() MqttOptions {
	return MqttOptions{
		ClientID:        c.opts.ClientID,
		KeepAlive:       c.opts.KeepAlive,
		Username:        c.opts.Username,
		HasCredentials:  c.opts.credentials,
		CleanSession:    c.opts.CleanSession,
		ProtocolVersion: c.opts.ProtocolVersion,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.state
}

// IsConnected returns true if the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.state == Connected
}

// SessionPresent reports the session-present flag of the last CONNACK.
func (c *Client) SessionPresent() bool {
	return c.sessionPresent
}

// Subscriptions returns the subscription table. Filters added while
// disconnected are sent by SubscribeAll.
func (c *Client) Subscriptions() *SubscriptionTable {
	return c.subs
}

// Stats returns the current client statistics.
func (c *Client) Stats() ClientStats {
	return ClientStats{
		PacketsSent:     c.packetsSent,
		PacketsReceived: c.packetsReceived,
		BytesSent:       c.bytesSent,
		BytesReceived:   c.bytesReceived,
		Connections:     c.connections,
		Inflight:        c.inflight.len(),
		Subscriptions:   c.subs.Len(),
		State:           c.state,
	}
}

// SetTransport replaces the transport, typically with a freshly dialed one
// before reconnecting. It is only allowed while Disconnected.
func (c *Client) SetTransport(t Transport) error {
	if c.state != Disconnected {
		return fmt.Errorf("%w: cannot replace transport while %s", ErrAlreadyConnected, c.state)
	}
	c.transport = t
	return nil
}

// Connect sends CONNECT and waits for CONNACK, at most for the connect
// timeout. On success the client is Connected. A refused CONNACK returns an
// error matching ErrConnectionRefused; a missing one returns ErrTimeout.
//
// Packets other than CONNACK received before it are a protocol error.
func (c *Client) Connect(ctx context.Context) error {
	if c.state != Disconnected {
		return fmt.Errorf("%w: state is %s", ErrAlreadyConnected, c.state)
	}
	if c.transport == nil {
		return fmt.Errorf("%w: no transport", ErrTransport)
	}

	// MQTT 3.1.1: Empty ClientID requires CleanSession=true
	if c.opts.ClientID == "" && !c.opts.CleanSession {
		return fmt.Errorf("MQTT requires a non-empty ClientID when CleanSession is false")
	}
	if ka := c.opts.KeepAlive; ka < 0 || ka > MaxKeepAlive || (ka > 0 && ka < time.Second) {
		return fmt.Errorf("invalid keep-alive %s: must be 0 or between 1s and %s", ka, MaxKeepAlive)
	}
	if w := c.opts.will; w != nil {
		if err := validateTopicName(w.Topic, c.opts.MaxTopicLength); err != nil {
			return fmt.Errorf("invalid will: %w", err)
		}
		if !w.QoS.Valid() {
			return fmt.Errorf("invalid will QoS %d", w.QoS)
		}
	}

	c.opts.Logger.Debug("connecting to MQTT server", "client_id", c.opts.ClientID)

	c.rxLen, c.rxConsumed = 0, 0
	c.pingSentAt = time.Time{}
	c.sessionPresent = false
	c.state = Connecting
	c.connectDeadline = c.opts.now().Add(c.opts.ConnectTimeout)

	if err := c.send(c.buildConnectPacket()); err != nil {
		if c.state == Connecting {
			// The packet did not fit the transmit buffer.
			c.state = Disconnected
		}
		return fmt.Errorf("failed to send CONNECT: %w", err)
	}

	for c.state == Connecting {
		if _, err := c.PollTimeout(ctx, c.opts.ReadTimeout); err != nil {
			if c.state == Connecting {
				c.teardown()
			}
			return err
		}
	}
	if c.state != Connected {
		return fmt.Errorf("%w: connection closed during handshake", ErrTransport)
	}
	return nil
}

func (c *Client) buildConnectPacket() *packets.ConnectPacket {
	pkt := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: c.opts.ProtocolVersion,
		CleanSession:  c.opts.CleanSession,
		KeepAlive:     uint16(c.opts.KeepAlive / time.Second),
		ClientID:      c.opts.ClientID,
	}

	if c.opts.credentials {
		pkt.UsernameFlag = true
		pkt.Username = c.opts.Username
		if c.opts.Password != "" {
			pkt.PasswordFlag = true
			pkt.Password = c.opts.Password
		}
	}

	if w := c.opts.will; w != nil {
		pkt.WillFlag = true
		pkt.WillTopic = w.Topic
		pkt.WillMessage = w.Payload
		pkt.WillQoS = uint8(w.QoS)
		pkt.WillRetain = w.Retained
	}

	return pkt
}

// handleConnack completes the handshake.
func (c *Client) handleConnack(p *packets.ConnackPacket) error {
	if p.ReturnCode != packets.ConnAccepted {
		err := connackError(p.ReturnCode)
		c.opts.Logger.Warn("connection refused", "return_code", p.ReturnCode, "error", err)
		c.teardown()
		return err
	}

	c.state = Connected
	c.connections++
	c.sessionPresent = p.SessionPresent
	c.opts.Logger.Debug("connection established",
		"client_id", c.opts.ClientID,
		"session_present", p.SessionPresent)

	if !c.opts.CleanSession && p.SessionPresent {
		return c.resumeSession()
	}
	c.inflight.reset()
	c.inbound.reset()
	return nil
}

// resumeSession resends in-flight publishes with DUP set and PUBREL for
// exchanges that already got their PUBREC.
func (c *Client) resumeSession() error {
	now := c.opts.now()
	for i := range c.inflight.slots {
		s := &c.inflight.slots[i]
		switch s.state {
		case slotAwaitPuback, slotAwaitPubrec:
			if len(s.msg) == 0 {
				continue
			}
			s.msg[0] |= 0x08 // DUP
			c.opts.Logger.Debug("resending publish", "packet_id", s.id)
			if err := c.write(s.msg, packets.PUBLISH); err != nil {
				return err
			}
			s.sent = now
		case slotAwaitPubcomp:
			if err := c.send(&packets.PubrelPacket{PacketID: s.id, Version: c.opts.ProtocolVersion}); err != nil {
				return err
			}
			s.sent = now
		}
	}
	return nil
}

// Disconnect sends DISCONNECT (best-effort) and moves to Disconnected.
// It returns ErrNotConnected if the client was not connected, or the write
// error; the client is Disconnected either way.
func (c *Client) Disconnect(ctx context.Context) error {
	if c.state != Connected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		c.teardown()
		return err
	}

	c.state = Disconnecting
	n, err := (&packets.DisconnectPacket{Version: c.opts.ProtocolVersion}).Encode(c.tx)
	if err == nil {
		err = c.transport.Write(c.tx[:n])
		if err == nil {
			c.countSent(n)
		} else {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	c.opts.Logger.Debug("disconnected", "client_id", c.opts.ClientID)
	c.teardown()
	return err
}

// NextDeadline returns the earliest time at which Poll has protocol work to
// do: sending a PINGREQ, failing a missing PINGRESP, or failing a missing
// CONNACK. It returns the zero time when nothing is scheduled.
func (c *Client) NextDeadline() time.Time {
	switch c.state {
	case Connecting:
		return c.connectDeadline
	case Connected:
		if c.opts.KeepAlive <= 0 {
			return time.Time{}
		}
		half := c.opts.KeepAlive / 2
		if !c.pingSentAt.IsZero() {
			return c.pingSentAt.Add(half)
		}
		return c.lastSent.Add(half)
	default:
		return time.Time{}
	}
}

// fail tears the connection down after a connection-level error.
func (c *Client) fail(err error) error {
	c.opts.Logger.Error("connection failed", "error", err)
	c.teardown()
	return err
}

// teardown moves to Disconnected and drops state that cannot survive the
// connection. With a persistent session in-flight publishes are kept.
func (c *Client) teardown() {
	c.state = Disconnected
	c.rxLen, c.rxConsumed = 0, 0
	c.pingSentAt = time.Time{}
	c.pub = Publish{}

	c.inflight.resetRequests()
	if c.opts.CleanSession {
		c.inflight.reset()
		c.inbound.reset()
	}
	c.subs.resetStatus()
}

// send encodes pkt into the transmit buffer and writes it. Encoding errors
// leave the connection untouched; write errors fail it.
func (c *Client) send(pkt packets.Packet) error {
	n, err := pkt.Encode(c.tx)
	if err != nil {
		return err
	}
	return c.write(c.tx[:n], pkt.Type())
}

func (c *Client) write(b []byte, packetType uint8) error {
	c.opts.Logger.Debug("sending packet", "type", packets.PacketNames[packetType], "bytes", len(b))
	if err := c.transport.Write(b); err != nil {
		return c.fail(fmt.Errorf("%w: write %s: %w", ErrTransport, packets.PacketNames[packetType], err))
	}
	c.countSent(len(b))
	return nil
}

func (c *Client) countSent(n int) {
	c.packetsSent++
	c.bytesSent += uint64(n)
	c.lastSent = c.opts.now()
}

// IsConnectionError reports whether err is a connection-level failure, after
// which the client is Disconnected and must be reconnected.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProtocol) ||
		errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionRefused)
}
