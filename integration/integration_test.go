package mqtiny_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/transport"
)

const opTimeout = 10 * time.Second

// connect dials server and connects a client over the new transport. The
// client is disconnected when the test ends.
func connect(t *testing.T, server string, opts ...mqtiny.Option) (*mqtiny.Client, transport.Stream) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	conn, err := dialTransport(t, server)
	if err != nil {
		t.Fatalf("Dial(%s) failed: %v", server, err)
	}
	opts = append([]mqtiny.Option{mqtiny.WithReadTimeout(100 * time.Millisecond)}, opts...)
	client := mqtiny.NewClient(conn, opts...)
	if err := client.Connect(ctx); err != nil {
		conn.Close()
		t.Fatalf("Connect failed: %v", err)
	}

	t.Cleanup(func() {
		if client.IsConnected() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		conn.Close()
	})
	return client, conn
}

func dialTransport(t *testing.T, server string) (transport.Stream, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), opTimeout)
	defer cancel()
	return transport.Dial(ctx, server)
}

// pollUntil polls client until done reports true, failing the test on
// timeout. done sees every delivered message, or nil after an idle poll.
func pollUntil(t *testing.T, client *mqtiny.Client, what string, done func(*mqtiny.Publish) bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	for {
		msg, err := client.Poll(ctx)
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if done(msg) {
			return
		}
	}
}

// subscribe subscribes and waits for the SUBACK.
func subscribe(t *testing.T, client *mqtiny.Client, filter string, qos mqtiny.QoS) {
	t.Helper()
	if _, err := client.Subscribe(filter, qos); err != nil {
		t.Fatalf("Subscribe(%s) failed: %v", filter, err)
	}
	pollUntil(t, client, "SUBACK", func(*mqtiny.Publish) bool {
		e, ok := client.Subscriptions().Lookup(filter)
		return ok && e.Status != mqtiny.SubscriptionPending
	})
	if e, _ := client.Subscriptions().Lookup(filter); e.Status != mqtiny.SubscriptionGranted {
		t.Fatalf("subscription to %s rejected", filter)
	}
}

// receive polls until a message arrives and returns a copy.
func receive(t *testing.T, client *mqtiny.Client) mqtiny.Message {
	t.Helper()
	var got mqtiny.Message
	pollUntil(t, client, "message", func(p *mqtiny.Publish) bool {
		if p == nil {
			return false
		}
		got = p.Clone()
		return true
	})
	return got
}

// settle polls until every outgoing QoS 1 and 2 flow is acknowledged.
func settle(t *testing.T, client *mqtiny.Client) {
	t.Helper()
	pollUntil(t, client, "acknowledgements", func(*mqtiny.Publish) bool {
		return client.Stats().Inflight == 0
	})
}

func TestPublishSubscribe(t *testing.T) {
	b := sharedBroker(t)

	for _, qos := range []mqtiny.QoS{mqtiny.AtMostOnce, mqtiny.AtLeastOnce, mqtiny.ExactlyOnce} {
		t.Run(fmt.Sprintf("QoS%d", qos), func(t *testing.T) {
			topic := fmt.Sprintf("mqtiny/it/%s", t.Name())
			sub, _ := connect(t, b.tcp, mqtiny.WithClientID(fmt.Sprintf("sub-%d", qos)))
			pub, _ := connect(t, b.tcp, mqtiny.WithClientID(fmt.Sprintf("pub-%d", qos)))

			subscribe(t, sub, topic, qos)

			payload := []byte(fmt.Sprintf("hello at qos %d", qos))
			if _, err := pub.Publish(topic, payload, mqtiny.WithQoS(qos)); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
			settle(t, pub)

			msg := receive(t, sub)
			if msg.Topic != topic || string(msg.Payload) != string(payload) || msg.QoS != qos {
				t.Errorf("got %s %q qos %d, want %s %q qos %d", msg.Topic, msg.Payload, msg.QoS, topic, payload, qos)
			}
			// Let the subscriber finish its side of the QoS 2 flow.
			settle(t, sub)
		})
	}
}

func TestWildcardsAndSubscribeAll(t *testing.T) {
	b := sharedBroker(t)
	sub, _ := connect(t, b.tcp, mqtiny.WithClientID("wild-sub"))
	pub, _ := connect(t, b.tcp, mqtiny.WithClientID("wild-pub"))

	subs := sub.Subscriptions()
	for _, f := range []string{"mqtiny/wild/+/temp", "mqtiny/wild/alerts/#"} {
		if err := subs.Add(f, mqtiny.AtMostOnce); err != nil {
			t.Fatalf("Add(%s): %v", f, err)
		}
	}
	if _, err := sub.SubscribeAll(); err != nil {
		t.Fatalf("SubscribeAll failed: %v", err)
	}
	pollUntil(t, sub, "SUBACK", func(*mqtiny.Publish) bool {
		for e := range subs.All() {
			if e.Status != mqtiny.SubscriptionGranted {
				return false
			}
		}
		return true
	})

	for _, topic := range []string{"mqtiny/wild/kitchen/humidity", "mqtiny/wild/kitchen/temp", "mqtiny/wild/alerts/fire/floor1"} {
		if _, err := pub.Publish(topic, []byte("x")); err != nil {
			t.Fatalf("Publish(%s): %v", topic, err)
		}
	}

	first := receive(t, sub)
	second := receive(t, sub)
	if first.Topic != "mqtiny/wild/kitchen/temp" || second.Topic != "mqtiny/wild/alerts/fire/floor1" {
		t.Errorf("got %s and %s", first.Topic, second.Topic)
	}
}

func TestRetained(t *testing.T) {
	b := sharedBroker(t)
	topic := "mqtiny/retained/" + t.Name()

	pub, _ := connect(t, b.tcp, mqtiny.WithClientID("retain-pub"))
	if _, err := pub.Publish(topic, []byte("last known"), mqtiny.WithQoS(mqtiny.AtLeastOnce), mqtiny.WithRetain(true)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	settle(t, pub)

	sub, _ := connect(t, b.tcp, mqtiny.WithClientID("retain-sub"))
	subscribe(t, sub, topic, mqtiny.AtMostOnce)
	msg := receive(t, sub)
	if !msg.Retained || string(msg.Payload) != "last known" {
		t.Errorf("got retained=%v payload %q", msg.Retained, msg.Payload)
	}

	// Clear the retained message.
	if _, err := pub.Publish(topic, nil, mqtiny.WithRetain(true)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestWebSocket(t *testing.T) {
	b := sharedBroker(t)
	topic := "mqtiny/ws/" + t.Name()

	sub, _ := connect(t, b.ws, mqtiny.WithClientID("ws-sub"))
	pub, _ := connect(t, b.tcp, mqtiny.WithClientID("ws-pub"))
	subscribe(t, sub, topic, mqtiny.AtLeastOnce)

	if _, err := pub.Publish(topic, []byte("over websocket"), mqtiny.WithQoS(mqtiny.AtLeastOnce)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	msg := receive(t, sub)
	if string(msg.Payload) != "over websocket" {
		t.Errorf("got %q", msg.Payload)
	}
}
