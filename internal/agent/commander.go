package agent

import (
	"errors"
	"strings"
	"time"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/modular"
)

// maxPendingReplies bounds the replies queued between two ticks.
const maxPendingReplies = 4

// CommandFunc answers a command. args is the payload after the command
// word, with surrounding spaces removed.
type CommandFunc func(args string) string

// Commander answers commands published on <prefix>/cmd with a reply on
// <prefix>/reply. The payload is "<command> [args]".
//
// Built in commands:
//
//	ping         replies "pong"
//	echo <text>  replies text
//	uptime       replies the time since the module was created
type Commander struct {
	cmdTopic   string
	replyTopic string
	qos        mqtiny.QoS
	now        func() time.Time
	started    time.Time

	commands map[string]CommandFunc
	pending  []string
	dropped  int
}

// NewCommander returns a commander for prefix. now may be nil.
func NewCommander(prefix string, qos mqtiny.QoS, now func() time.Time) *Commander {
	if now == nil {
		now = time.Now
	}
	c := &Commander{
		cmdTopic:   prefix + "/cmd",
		replyTopic: prefix + "/reply",
		qos:        qos,
		now:        now,
		started:    now(),
		pending:    make([]string, 0, maxPendingReplies),
	}
	c.commands = map[string]CommandFunc{
		"ping": func(string) string { return "pong" },
		"echo": func(args string) string { return args },
		"uptime": func(string) string {
			return c.now().Sub(c.started).Truncate(time.Second).String()
		},
	}
	return c
}

// Handle adds or replaces a command.
func (c *Commander) Handle(name string, fn CommandFunc) {
	c.commands[name] = fn
}

// Dropped returns the number of replies lost to a full queue or refused by
// the outbox, such as a reply larger than its payload size.
func (c *Commander) Dropped() int { return c.dropped }

func (c *Commander) Register(tc modular.TopicCollector) {
	tc.Add(c.cmdTopic)
}

func (c *Commander) OnMessage(msg *mqtiny.Publish) {
	if string(msg.Topic) != c.cmdTopic {
		return
	}
	name, args, _ := strings.Cut(strings.TrimSpace(string(msg.Payload)), " ")
	reply := "error: unknown command " + name
	if fn, ok := c.commands[name]; ok {
		reply = fn(strings.TrimSpace(args))
	}

	if len(c.pending) == maxPendingReplies {
		c.dropped++
		return
	}
	c.pending = append(c.pending, reply)
}

func (c *Commander) NeedsImmediatePublish() bool {
	return len(c.pending) > 0
}

func (c *Commander) OnTick(out modular.PublishOutbox) time.Duration {
	sent := 0
	for _, reply := range c.pending {
		err := out.Publish(c.replyTopic, []byte(reply), c.qos)
		if errors.Is(err, modular.ErrOutboxFull) {
			// Retry the rest on the next tick.
			break
		}
		if err != nil {
			c.dropped++
		}
		sent++
	}
	c.pending = c.pending[:copy(c.pending, c.pending[sent:])]
	if len(c.pending) > 0 {
		return time.Second
	}
	return time.Minute
}
