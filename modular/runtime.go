package modular

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gonzalop/mqtiny"
)

// Runtime owns a client and a set of modules and runs the event loop that
// connects them. It is driven by Run; none of its methods are safe for
// concurrent use except those of the Handle it returns.
type Runtime struct {
	client   *mqtiny.Client
	modules  []scheduled
	registry *TopicRegistry
	outbox   *Outbox
	handle   *Handle
	opts     *runtimeOptions
}

// scheduled is a module with its next tick deadline.
type scheduled struct {
	m   Module
	due time.Time
}

// NewRuntime returns a runtime for client and modules. Modules are called
// in the order given. The topic registry never holds more filters than the
// client's subscription table. It panics if client is nil or a size option
// is not positive.
func NewRuntime(client *mqtiny.Client, modules []Module, opts ...RuntimeOption) *Runtime {
	if client == nil {
		panic("modular: nil client")
	}
	options := defaultRuntimeOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.HandleDepth <= 0 {
		panic(fmt.Sprintf("modular: handle depth must be positive, got %d", options.HandleDepth))
	}
	if !options.SubscribeQoS.Valid() {
		panic(fmt.Sprintf("modular: invalid subscribe QoS %d", options.SubscribeQoS))
	}

	r := &Runtime{
		client:   client,
		modules:  make([]scheduled, len(modules)),
		registry: NewTopicRegistry(min(options.MaxTopics, client.Subscriptions().Cap())),
		outbox:   NewOutbox(options.OutboxCapacity, options.TopicSize, options.PayloadSize),
		handle:   newHandle(options.HandleDepth),
		opts:     options,
	}
	for i, m := range modules {
		r.modules[i].m = m
		if p, ok := m.(*Pair); ok {
			p.inheritClock(options.now)
		}
	}
	return r
}

// Client returns the client driven by the runtime.
func (r *Runtime) Client() *mqtiny.Client {
	return r.client
}

// Handle returns the publisher for use from other goroutines.
func (r *Runtime) Handle() *Handle {
	return r.handle
}

// Run connects the client if needed, subscribes to every filter the modules
// register, calls OnStart and then dispatches messages and ticks until ctx
// is done or the connection fails.
//
// Run returns ctx.Err() on cancellation and the client's error otherwise;
// mqtiny.IsConnectionError tells whether reconnecting makes sense. A
// registered filter that cannot be subscribed, for lack of table space,
// packet ids or transmit buffer, is also returned. Run can
// be called again after a failure: registration and OnStart run again on
// the new connection. Queued outbox entries are discarded when the
// connection fails.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.client.IsConnected() {
		if err := r.client.Connect(ctx); err != nil {
			return err
		}
	}
	if err := r.subscribe(); err != nil {
		return err
	}

	now := r.opts.now()
	for i := range r.modules {
		start(r.modules[i].m, r.outbox)
		r.modules[i].due = now
	}
	if err := r.flush(); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pub, err := r.client.PollTimeout(ctx, r.nextWait())
		if err != nil {
			return err
		}
		if pub != nil {
			r.dispatch(pub)
		}
		r.tickDue()

		if err := r.flush(); err != nil {
			return err
		}
	}
}

// subscribe runs the registration pass and re-subscribes the whole
// subscription table.
func (r *Runtime) subscribe() error {
	r.registry.Clear()
	for _, s := range r.modules {
		s.m.Register(r.registry)
	}
	subs := r.client.Subscriptions()
	for filter := range r.registry.All() {
		if err := subs.Add(filter, r.opts.SubscribeQoS); err != nil {
			return fmt.Errorf("subscribing %q: %w", filter, err)
		}
	}

	id, err := r.client.SubscribeAll()
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	r.opts.Logger.Debug("subscribed", "filters", subs.Len(), "packet_id", id)
	return nil
}

// dispatch hands msg to every module, then ticks the modules that want to
// answer it right away.
func (r *Runtime) dispatch(msg *mqtiny.Publish) {
	for _, s := range r.modules {
		s.m.OnMessage(msg)
	}

	var now time.Time
	for i := range r.modules {
		s := &r.modules[i]
		if !needsImmediate(s.m) {
			continue
		}
		if now.IsZero() {
			now = r.opts.now()
		}
		s.due = now.Add(s.m.OnTick(r.outbox))
	}
}

// tickDue ticks every module whose deadline has passed. A non-positive
// delay makes the module due again on the next iteration.
func (r *Runtime) tickDue() {
	now := r.opts.now()
	for i := range r.modules {
		s := &r.modules[i]
		if now.Before(s.due) {
			continue
		}
		s.due = now.Add(s.m.OnTick(r.outbox))
	}
}

// nextWait returns how long the next poll may wait: until the earliest
// module deadline, at most MaxWait.
func (r *Runtime) nextWait() time.Duration {
	wait := r.opts.MaxWait
	now := r.opts.now()
	for _, s := range r.modules {
		wait = min(wait, max(s.due.Sub(now), 0))
	}
	return wait
}

// flush publishes the outbox and then the Handle queue. Only connection
// errors stop it; a message the client refuses is logged and dropped.
func (r *Runtime) flush() error {
	if err := r.outbox.Drain(r.send); err != nil {
		return err
	}
	return r.handle.drain(r.send)
}

func (r *Runtime) send(e Entry) error {
	_, err := r.client.Publish(e.Topic, e.Payload, mqtiny.WithQoS(e.QoS))
	if err == nil {
		return nil
	}
	if mqtiny.IsConnectionError(err) || errors.Is(err, mqtiny.ErrNotConnected) {
		return err
	}
	r.opts.Logger.Warn("dropping publish", "topic", e.Topic, "error", err)
	return nil
}
