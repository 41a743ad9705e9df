package modular

import (
	"time"

	"github.com/gonzalop/mqtiny"
)

// Pair combines two modules into one. Every call is forwarded to First
// and then to Second. Each child keeps its own tick schedule; OnTick only
// ticks the children that are due (or want an immediate publish) and
// returns the time until the earlier of the two next deadlines.
//
// Pairs nest, so any number of modules can be composed into a tree. A
// Runtime hands its clock to the pairs it runs unless WithPairClock set one.
type Pair struct {
	first, second pairChild
	now           func() time.Time
}

type pairChild struct {
	m       Module
	due     time.Time
	started bool
}

// PairOption configures a Pair.
type PairOption func(*Pair)

// WithPairClock sets the time source for the children's deadlines.
func WithPairClock(now func() time.Time) PairOption {
	return func(p *Pair) {
		p.now = now
	}
}

// NewPair returns a module forwarding to first and second.
func NewPair(first, second Module, opts ...PairOption) *Pair {
	p := &Pair{
		first:  pairChild{m: first},
		second: pairChild{m: second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// First returns the first child.
func (p *Pair) First() Module { return p.first.m }

// Second returns the second child.
func (p *Pair) Second() Module { return p.second.m }

func (p *Pair) Register(c TopicCollector) {
	p.first.m.Register(c)
	p.second.m.Register(c)
}

func (p *Pair) OnMessage(msg *mqtiny.Publish) {
	p.first.m.OnMessage(msg)
	p.second.m.OnMessage(msg)
}

func (p *Pair) OnTick(out PublishOutbox) time.Duration {
	now := time.Now()
	if p.now != nil {
		now = p.now()
	}
	return min(p.first.tick(out, now), p.second.tick(out, now))
}

// OnStart forwards to the children that implement Starter and makes both
// due on the next tick.
func (p *Pair) OnStart(out PublishOutbox) {
	start(p.first.m, out)
	start(p.second.m, out)
	p.first.started = false
	p.second.started = false
}

func (p *Pair) NeedsImmediatePublish() bool {
	return needsImmediate(p.first.m) || needsImmediate(p.second.m)
}

// inheritClock sets now on p and its nested pairs that have no clock yet.
func (p *Pair) inheritClock(now func() time.Time) {
	if p.now == nil {
		p.now = now
	}
	for _, m := range []Module{p.first.m, p.second.m} {
		if child, ok := m.(*Pair); ok {
			child.inheritClock(p.now)
		}
	}
}

func (c *pairChild) tick(out PublishOutbox, now time.Time) time.Duration {
	if c.started && now.Before(c.due) && !needsImmediate(c.m) {
		return c.due.Sub(now)
	}
	d := c.m.OnTick(out)
	c.due = now.Add(d)
	c.started = true
	return d
}
