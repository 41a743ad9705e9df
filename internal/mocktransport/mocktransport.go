// Package mocktransport provides a scripted in-memory transport for tests.
package mocktransport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gonzalop/mqtiny/internal/packets"
)

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("mocktransport: closed")

// Transport is a scripted byte stream. Bytes queued with Feed are returned by
// Read in order, one chunk per call (split if the caller's buffer is
// smaller). Every Write is recorded.
type Transport struct {
	mu       sync.Mutex
	inbound  [][]byte
	written  [][]byte
	version  uint8
	closed   bool
	readErr  error
	writeErr error

	// OnWrite, if set, is called with each decoded packet after it is
	// recorded. It may call Feed to script a reply.
	OnWrite func(t *Transport, pkt packets.Packet)

	// OnIdle, if set, is called when Read finds nothing queued, with the
	// timeout the caller asked for. Tests use it to advance a fake clock.
	OnIdle func(timeout time.Duration)
}

// New returns a transport that decodes written packets as MQTT v3.1.1.
func New() *Transport {
	return &Transport{version: 4}
}

// NewVersion returns a transport that decodes written packets with the
// given protocol version.
func NewVersion(version uint8) *Transport {
	return &Transport{version: version}
}

// Read implements mqtiny.Transport.
func (t *Transport) Read(p []byte, timeout time.Duration) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	if len(t.inbound) == 0 {
		err := t.readErr
		idle := t.OnIdle
		t.mu.Unlock()
		if err != nil {
			return 0, err
		}
		if idle != nil {
			idle(timeout)
		}
		return 0, nil
	}

	chunk := t.inbound[0]
	n := copy(p, chunk)
	if n == len(chunk) {
		t.inbound = t.inbound[1:]
	} else {
		t.inbound[0] = chunk[n:]
	}
	t.mu.Unlock()
	return n, nil
}

// Write implements mqtiny.Transport.
func (t *Transport) Write(p []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.writeErr != nil {
		err := t.writeErr
		t.mu.Unlock()
		return err
	}
	t.written = append(t.written, append([]byte(nil), p...))
	hook := t.OnWrite
	version := t.version
	t.mu.Unlock()

	if hook != nil {
		if pkt, _, err := packets.Decode(append([]byte(nil), p...), version); err == nil {
			hook(t, pkt)
		}
	}
	return nil
}

// Close makes every later Read and Write fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Feed queues raw chunks for Read.
func (t *Transport) Feed(chunks ...[]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range chunks {
		t.inbound = append(t.inbound, append([]byte(nil), c...))
	}
}

// FeedPacket encodes each packet and queues it as its own chunk.
func (t *Transport) FeedPacket(pkts ...packets.Packet) {
	for _, pkt := range pkts {
		t.Feed(Encode(pkt))
	}
}

// Pending returns the number of queued chunks not yet read.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inbound)
}

// FailReads makes Read return err once the queued chunks are consumed.
// io.EOF simulates the server closing the connection.
func (t *Transport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		err = io.EOF
	}
	t.readErr = err
}

// FailWrites makes every later Write return err. nil restores writing.
func (t *Transport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns copies of all written byte slices, one per Write call.
func (t *Transport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

// Packets decodes every write. It panics on undecodable data, which is
// always a test bug.
func (t *Transport) Packets() []packets.Packet {
	var out []packets.Packet
	for _, w := range t.Written() {
		pkt, _, err := packets.Decode(w, t.version)
		if err != nil {
			panic(fmt.Sprintf("mocktransport: undecodable write % X: %v", w, err))
		}
		out = append(out, pkt)
	}
	return out
}

// Types returns the packet type of every write, in order.
func (t *Transport) Types() []uint8 {
	var out []uint8
	for _, pkt := range t.Packets() {
		out = append(out, pkt.Type())
	}
	return out
}

// Last returns the most recently written packet, or nil.
func (t *Transport) Last() packets.Packet {
	pkts := t.Packets()
	if len(pkts) == 0 {
		return nil
	}
	return pkts[len(pkts)-1]
}

// ResetWritten forgets the recorded writes.
func (t *Transport) ResetWritten() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = nil
}

// Encode encodes pkt into a new slice.
func Encode(pkt packets.Packet) []byte {
	buf := make([]byte, 64*1024)
	n, err := pkt.Encode(buf)
	if err != nil {
		panic(fmt.Sprintf("mocktransport: encode %s: %v", packets.PacketNames[pkt.Type()], err))
	}
	return buf[:n]
}

// AcceptConnect is an OnWrite hook that answers CONNECT with an accepting
// CONNACK, SUBSCRIBE with a SUBACK granting every requested QoS, and
// UNSUBSCRIBE with UNSUBACK.
func AcceptConnect(t *Transport, pkt packets.Packet) {
	switch p := pkt.(type) {
	case *packets.ConnectPacket:
		t.FeedPacket(&packets.ConnackPacket{Version: p.ProtocolLevel})
	case *packets.SubscribePacket:
		codes := make([]uint8, len(p.Filters))
		for i, f := range p.Filters {
			codes[i] = f.QoS
		}
		t.FeedPacket(&packets.SubackPacket{PacketID: p.PacketID, ReturnCodes: codes, Version: p.Version})
	case *packets.UnsubscribePacket:
		t.FeedPacket(&packets.UnsubackPacket{PacketID: p.PacketID, Version: p.Version})
	}
}
