package modular

import (
	"context"
	"testing"
	"time"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/internal/mocktransport"
	"github.com/gonzalop/mqtiny/internal/packets"
)

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// recorder is a configurable module that records every call.
type recorder struct {
	name    string
	filters []string
	period  time.Duration
	clock   *testClock
	events  *[]string

	registered int
	accepted   []bool
	started    int
	ticks      []time.Time
	messages   []mqtiny.Message

	onStart func(out PublishOutbox)
	onTick  func(out PublishOutbox)
}

func (r *recorder) Register(c TopicCollector) {
	r.registered++
	for _, f := range r.filters {
		r.accepted = append(r.accepted, c.Add(f))
	}
}

func (r *recorder) OnMessage(msg *mqtiny.Publish) {
	r.messages = append(r.messages, msg.Clone())
	if r.events != nil {
		*r.events = append(*r.events, r.name+":"+msg.TopicString())
	}
}

func (r *recorder) OnTick(out PublishOutbox) time.Duration {
	if r.clock != nil {
		r.ticks = append(r.ticks, r.clock.Now())
	}
	if r.onTick != nil {
		r.onTick(out)
	}
	if r.period == 0 {
		return time.Hour
	}
	return r.period
}

func (r *recorder) OnStart(out PublishOutbox) {
	r.started++
	if r.onStart != nil {
		r.onStart(out)
	}
}

// responder answers "ping" on its command topic through the immediate path.
type responder struct {
	recorder
	pending bool
}

func (r *responder) OnMessage(msg *mqtiny.Publish) {
	r.recorder.OnMessage(msg)
	if msg.TopicString() == "dev/cmd" && string(msg.Payload) == "ping" {
		r.pending = true
	}
}

func (r *responder) NeedsImmediatePublish() bool { return r.pending }

func (r *responder) OnTick(out PublishOutbox) time.Duration {
	if r.pending {
		_ = out.Publish("dev/reply", []byte("pong"), mqtiny.AtMostOnce)
		r.pending = false
	}
	return r.recorder.OnTick(out)
}

// harness runs a Runtime over a mock transport with a fake clock. Every
// idle read advances the clock by the requested wait.
type harness struct {
	clock  *testClock
	tr     *mocktransport.Transport
	client *mqtiny.Client
	rt     *Runtime

	ctx    context.Context
	cancel context.CancelFunc
	stopAt time.Time

	// onIdle runs after the clock moved on an idle read
	onIdle func()
	// onWrite runs for every written packet after the broker replies
	onWrite func(tr *mocktransport.Transport, pkt packets.Packet)
}

func newHarness(t *testing.T, clock *testClock, modules []Module, opts ...RuntimeOption) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{clock: clock, ctx: ctx, cancel: cancel}
	h.attach(mocktransport.New())
	h.client = mqtiny.NewClient(h.tr, mqtiny.WithClientID("runtime-test"), mqtiny.WithClock(clock.Now))
	h.rt = NewRuntime(h.client, modules, append([]RuntimeOption{WithClock(clock.Now)}, opts...)...)
	return h
}

// attach makes tr the harness transport, answering like a broker.
func (h *harness) attach(tr *mocktransport.Transport) {
	h.tr = tr
	tr.OnWrite = func(tr *mocktransport.Transport, pkt packets.Packet) {
		mocktransport.AcceptConnect(tr, pkt)
		if h.onWrite != nil {
			h.onWrite(tr, pkt)
		}
	}
	tr.OnIdle = func(d time.Duration) {
		h.clock.Advance(d)
		if h.onIdle != nil {
			h.onIdle()
		}
		if !h.stopAt.IsZero() && !h.clock.Now().Before(h.stopAt) {
			h.cancel()
		}
	}
}

// runFor runs the runtime until d of fake time has passed.
func (h *harness) runFor(d time.Duration) error {
	h.stopAt = h.clock.Now().Add(d)
	return h.rt.Run(h.ctx)
}

// published returns the PUBLISH packets written to tr, in order.
func published(tr *mocktransport.Transport) []*packets.PublishPacket {
	var out []*packets.PublishPacket
	for _, pkt := range tr.Packets() {
		if p, ok := pkt.(*packets.PublishPacket); ok {
			out = append(out, p)
		}
	}
	return out
}

func topics(pubs []*packets.PublishPacket) []string {
	out := make([]string, len(pubs))
	for i, p := range pubs {
		out[i] = string(p.Topic)
	}
	return out
}
