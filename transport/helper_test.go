package transport

import (
	"bytes"
	"context"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/require"

	"github.com/gonzalop/mqtiny"
)

// fakeBroker answers CONNECT with CONNACK followed by a greeting PUBLISH
// and forwards every other packet to received.
type fakeBroker struct {
	received chan paho.ControlPacket
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{received: make(chan paho.ControlPacket, 16)}
}

func (b *fakeBroker) handle(cp paho.ControlPacket, send func([]byte) error) error {
	if _, ok := cp.(*paho.ConnectPacket); !ok {
		b.received <- cp
		return nil
	}

	connack := paho.NewControlPacket(paho.Connack).(*paho.ConnackPacket)
	if err := send(encodePaho(connack)); err != nil {
		return err
	}

	greeting := paho.NewControlPacket(paho.Publish).(*paho.PublishPacket)
	greeting.TopicName = "greeting/hello"
	greeting.Payload = []byte("hi")
	return send(encodePaho(greeting))
}

func encodePaho(cp paho.ControlPacket) []byte {
	var buf bytes.Buffer
	if err := cp.Write(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// exercise runs a client over tr against a fakeBroker: connect, receive
// the greeting, publish one message.
func exercise(t *testing.T, tr mqtiny.Transport, broker *fakeBroker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mqtiny.NewClient(tr, mqtiny.WithClientID("transport-test"), mqtiny.WithReadTimeout(50*time.Millisecond))
	require.NoError(t, client.Connect(ctx))

	var msg *mqtiny.Publish
	for msg == nil {
		var err error
		msg, err = client.Poll(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, "greeting/hello", msg.TopicString())
	require.Equal(t, "hi", string(msg.Payload))

	_, err := client.Publish("devices/d1/state", []byte("on"))
	require.NoError(t, err)

	select {
	case cp := <-broker.received:
		pub, ok := cp.(*paho.PublishPacket)
		require.True(t, ok, "broker got %T", cp)
		require.Equal(t, "devices/d1/state", pub.TopicName)
		require.Equal(t, []byte("on"), pub.Payload)
	case <-ctx.Done():
		t.Fatal("broker did not receive the PUBLISH")
	}

	require.NoError(t, client.Disconnect(ctx))
}
