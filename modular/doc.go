// Package modular drives an mqtiny.Client on behalf of a set of modules.
//
// A module is a small, self-contained feature (a heartbeat, a command
// handler, a sensor reporter) that never touches the network itself. It
// declares the topic filters it wants during registration, receives every
// incoming message, and is ticked on its own schedule. Publishing from a
// module goes through a PublishOutbox: the call only copies the message
// into a fixed-capacity queue, and the Runtime sends the queue after the
// callbacks of the current iteration have returned.
//
// # Quick Start
//
//	type heartbeat struct{}
//
//	func (heartbeat) Register(modular.TopicCollector)  {}
//	func (heartbeat) OnMessage(*mqtiny.Publish)       {}
//	func (heartbeat) OnTick(out modular.PublishOutbox) time.Duration {
//	    _ = out.Publish("devices/d1/alive", []byte("1"), mqtiny.AtMostOnce)
//	    return 30 * time.Second
//	}
//
//	rt := modular.NewRuntime(client, []modular.Module{heartbeat{}})
//	err := rt.Run(ctx)
//
// # Callbacks
//
// All callbacks run on the goroutine that called Run, one at a time, in
// registration order. The *mqtiny.Publish passed to OnMessage borrows the
// client's receive buffer and must not be kept after OnMessage returns;
// use Clone to keep a copy. A module that wants to answer a message sets a
// flag in OnMessage and reports it through ImmediatePublisher; the Runtime
// then ticks it in the same iteration.
//
// Code running on other goroutines publishes through a Handle.
package modular
