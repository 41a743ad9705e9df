package mqtiny

import (
	"context"
	"testing"
	"time"

	"github.com/gonzalop/mqtiny/internal/mocktransport"
	"github.com/gonzalop/mqtiny/internal/packets"
)

// fakeClock is advanced by the mock transport whenever a read would wait.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) {
	if d <= 0 {
		// A zero wait still lets time pass so loops make progress.
		d = time.Millisecond
	}
	c.now = c.now.Add(d)
}

// newTestClient returns a connected client on a mock transport. The
// recorded writes are cleared and no reply hook is installed.
func newTestClient(tb testing.TB, opts ...Option) (*Client, *mocktransport.Transport, *fakeClock) {
	tb.Helper()

	clock := newFakeClock()
	tr := mocktransport.New()
	tr.OnWrite = mocktransport.AcceptConnect
	tr.OnIdle = clock.Advance

	all := append([]Option{WithClientID("test-client"), WithClock(clock.Now)}, opts...)
	c := NewClient(tr, all...)
	if err := c.Connect(context.Background()); err != nil {
		tb.Fatalf("Connect() error: %v", err)
	}
	if c.State() != Connected {
		tb.Fatalf("state = %s, want connected", c.State())
	}

	tr.OnWrite = nil
	tr.ResetWritten()
	return c, tr, clock
}

// pollOnce polls and fails the test on error.
func pollOnce(t *testing.T, c *Client) *Publish {
	t.Helper()
	pub, err := c.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	return pub
}

// pollUntil polls until a Publish arrives or the attempts run out.
func pollUntil(t *testing.T, c *Client, attempts int) *Publish {
	t.Helper()
	for range attempts {
		if pub := pollOnce(t, c); pub != nil {
			return pub
		}
	}
	t.Fatalf("no Publish after %d polls", attempts)
	return nil
}

func publishPacket(topic, payload string, qos uint8, id uint16) *packets.PublishPacket {
	return &packets.PublishPacket{
		Topic:    []byte(topic),
		Payload:  []byte(payload),
		QoS:      qos,
		PacketID: id,
		Version:  ProtocolV311,
	}
}
