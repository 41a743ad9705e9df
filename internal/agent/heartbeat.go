package agent

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/modular"
)

// Status is the heartbeat payload.
type Status struct {
	State    string `json:"state"`
	Seq      uint64 `json:"seq"`
	UptimeS  int64  `json:"uptime_s"`
	Messages uint64 `json:"messages"`
	Dropped  uint64 `json:"dropped,omitempty"`
}

// Heartbeat publishes a Status on <prefix>/status every interval.
type Heartbeat struct {
	topic    string
	interval time.Duration
	qos      mqtiny.QoS
	now      func() time.Time

	started  time.Time
	seq      uint64
	messages uint64
	dropped  uint64
}

// NewHeartbeat returns a heartbeat module. now may be nil.
func NewHeartbeat(prefix string, interval time.Duration, qos mqtiny.QoS, now func() time.Time) *Heartbeat {
	if now == nil {
		now = time.Now
	}
	return &Heartbeat{
		topic:    prefix + "/status",
		interval: interval,
		qos:      qos,
		now:      now,
		started:  now(),
	}
}

// Topic returns the status topic.
func (h *Heartbeat) Topic() string { return h.topic }

func (h *Heartbeat) Register(modular.TopicCollector) {}

// OnMessage counts the messages seen since start.
func (h *Heartbeat) OnMessage(*mqtiny.Publish) {
	h.messages++
}

func (h *Heartbeat) OnTick(out modular.PublishOutbox) time.Duration {
	h.seq++
	payload, err := json.Marshal(Status{
		State:    "online",
		Seq:      h.seq,
		UptimeS:  int64(h.now().Sub(h.started) / time.Second),
		Messages: h.messages,
		Dropped:  h.dropped,
	})
	if err != nil {
		return h.interval
	}
	if err := out.Publish(h.topic, payload, h.qos); errors.Is(err, modular.ErrOutboxFull) {
		h.dropped++
	}
	return h.interval
}

// Will returns the client will that marks the agent offline when the
// connection drops without a DISCONNECT.
func (h *Heartbeat) Will() mqtiny.Option {
	payload, _ := json.Marshal(Status{State: "offline"})
	return mqtiny.WithWill(h.topic, payload, h.qos, false)
}
