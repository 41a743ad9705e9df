package packets

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func encodeToBytes(t *testing.T, pkt Packet) []byte {
	t.Helper()
	buf := make([]byte, 1024)
	n, err := pkt.Encode(buf)
	if err != nil {
		t.Fatalf("failed to encode %s: %v", PacketNames[pkt.Type()], err)
	}
	return buf[:n]
}

func decodeBytes(t *testing.T, encoded []byte, version uint8) Packet {
	t.Helper()
	pkt, n, err := Decode(encoded, version)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("decoded %d bytes, want %d", n, len(encoded))
	}
	return pkt
}

func TestConnectPacket(t *testing.T) {
	t.Parallel()
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  true,
		KeepAlive:     60,
		ClientID:      "test-client",
		UsernameFlag:  true,
		Username:      "user",
		PasswordFlag:  true,
		Password:      "pass",
	}

	decoded, ok := decodeBytes(t, encodeToBytes(t, pkt), 4).(*ConnectPacket)
	if !ok {
		t.Fatal("decoded packet is not a CONNECT")
	}

	if decoded.ProtocolName != pkt.ProtocolName {
		t.Errorf("protocol name = %s, want %s", decoded.ProtocolName, pkt.ProtocolName)
	}
	if decoded.ProtocolLevel != pkt.ProtocolLevel {
		t.Errorf("protocol level = %d, want %d", decoded.ProtocolLevel, pkt.ProtocolLevel)
	}
	if decoded.CleanSession != pkt.CleanSession {
		t.Errorf("clean session = %v, want %v", decoded.CleanSession, pkt.CleanSession)
	}
	if decoded.KeepAlive != pkt.KeepAlive {
		t.Errorf("keep alive = %d, want %d", decoded.KeepAlive, pkt.KeepAlive)
	}
	if decoded.ClientID != pkt.ClientID {
		t.Errorf("client ID = %s, want %s", decoded.ClientID, pkt.ClientID)
	}
	if decoded.Username != pkt.Username {
		t.Errorf("username = %s, want %s", decoded.Username, pkt.Username)
	}
	if decoded.Password != pkt.Password {
		t.Errorf("password = %s, want %s", decoded.Password, pkt.Password)
	}
}

func TestConnectPacketWithWill(t *testing.T) {
	t.Parallel()
	pkt := &ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		KeepAlive:     30,
		ClientID:      "sensor-1",
		WillFlag:      true,
		WillQoS:       1,
		WillRetain:    true,
		WillTopic:     "devices/sensor-1/status",
		WillMessage:   []byte("offline"),
	}

	encoded := encodeToBytes(t, pkt)
	// Flags byte: will flag, will QoS 1, will retain
	if encoded[9] != 0x2C {
		t.Errorf("connect flags = 0x%02X, want 0x2C", encoded[9])
	}

	decoded := decodeBytes(t, encoded, 4).(*ConnectPacket)
	if !decoded.WillFlag || decoded.WillQoS != 1 || !decoded.WillRetain {
		t.Errorf("will flags = %v/%d/%v", decoded.WillFlag, decoded.WillQoS, decoded.WillRetain)
	}
	if decoded.WillTopic != pkt.WillTopic {
		t.Errorf("will topic = %s, want %s", decoded.WillTopic, pkt.WillTopic)
	}
	if !bytes.Equal(decoded.WillMessage, pkt.WillMessage) {
		t.Errorf("will message = %q, want %q", decoded.WillMessage, pkt.WillMessage)
	}
}

func TestConnectBytes(t *testing.T) {
	pkt := &ConnectPacket{ProtocolName: "MQTT", ProtocolLevel: 4, CleanSession: true, KeepAlive: 10, ClientID: "c"}
	want := []byte{
		0x10, 0x0D,
		0x00, 0x04, 'M', 'Q', 'T', 'T',
		0x04, 0x02, 0x00, 0x0A,
		0x00, 0x01, 'c',
	}
	if got := encodeToBytes(t, pkt); !bytes.Equal(got, want) {
		t.Errorf("CONNECT bytes = % X, want % X", got, want)
	}
}

func TestDecodeConnectInvalidFlags(t *testing.T) {
	base := []byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x00, 0x00, 0x0A, 0x00, 0x01, 'c'}
	for _, flags := range []byte{0x01, 0x18, 0x08, 0x20} {
		buf := append([]byte(nil), base...)
		buf[7] = flags
		if _, err := DecodeConnect(buf); err == nil {
			t.Errorf("flags 0x%02X: expected error", flags)
		}
	}
}

func TestConnackPacket(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		pkt  *ConnackPacket
	}{
		{"accepted", &ConnackPacket{ReturnCode: ConnAccepted, Version: 4}},
		{"session present", &ConnackPacket{SessionPresent: true, Version: 4}},
		{"not authorized", &ConnackPacket{ReturnCode: ConnRefusedNotAuthorized, Version: 4}},
		{"v5 with properties", &ConnackPacket{Properties: []byte{0x21, 0x00, 0x0A}, Version: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := decodeBytes(t, encodeToBytes(t, tt.pkt), tt.pkt.Version).(*ConnackPacket)
			if decoded.SessionPresent != tt.pkt.SessionPresent {
				t.Errorf("session present = %v, want %v", decoded.SessionPresent, tt.pkt.SessionPresent)
			}
			if decoded.ReturnCode != tt.pkt.ReturnCode {
				t.Errorf("return code = %d, want %d", decoded.ReturnCode, tt.pkt.ReturnCode)
			}
			if !bytes.Equal(decoded.Properties, tt.pkt.Properties) {
				t.Errorf("properties = %v, want %v", decoded.Properties, tt.pkt.Properties)
			}
		})
	}
}

func TestDecodeConnackReservedFlags(t *testing.T) {
	if _, _, err := Decode([]byte{0x20, 0x02, 0x02, 0x00}, 4); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestPublishPacket(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		pkt  *PublishPacket
	}{
		{"qos0", &PublishPacket{Topic: []byte("a/b"), Payload: []byte("hello"), Version: 4}},
		{"qos1 retain", &PublishPacket{Topic: []byte("a/b"), QoS: 1, Retain: true, PacketID: 7, Payload: []byte("x"), Version: 4}},
		{"qos2 dup", &PublishPacket{Topic: []byte("t"), QoS: 2, Dup: true, PacketID: 65535, Version: 4}},
		{"empty payload", &PublishPacket{Topic: []byte("t"), Version: 4}},
		{"v5 properties", &PublishPacket{Topic: []byte("t"), QoS: 1, PacketID: 1, Properties: []byte{0x01, 0x01}, Payload: []byte("p"), Version: 5}},
		{"large payload", &PublishPacket{Topic: []byte("big"), Payload: bytes.Repeat([]byte{0x5A}, 300), Version: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeToBytes(t, tt.pkt)
			if len(encoded) != tt.pkt.EncodedLen() {
				t.Errorf("EncodedLen() = %d, encoded %d bytes", tt.pkt.EncodedLen(), len(encoded))
			}

			decoded := decodeBytes(t, encoded, tt.pkt.Version).(*PublishPacket)
			if !bytes.Equal(decoded.Topic, tt.pkt.Topic) {
				t.Errorf("topic = %q, want %q", decoded.Topic, tt.pkt.Topic)
			}
			if !bytes.Equal(decoded.Payload, tt.pkt.Payload) {
				t.Errorf("payload = %q, want %q", decoded.Payload, tt.pkt.Payload)
			}
			if decoded.QoS != tt.pkt.QoS || decoded.Retain != tt.pkt.Retain || decoded.Dup != tt.pkt.Dup {
				t.Errorf("flags = %d/%v/%v, want %d/%v/%v",
					decoded.QoS, decoded.Retain, decoded.Dup, tt.pkt.QoS, tt.pkt.Retain, tt.pkt.Dup)
			}
			if decoded.PacketID != tt.pkt.PacketID {
				t.Errorf("packet ID = %d, want %d", decoded.PacketID, tt.pkt.PacketID)
			}
			if !bytes.Equal(decoded.Properties, tt.pkt.Properties) {
				t.Errorf("properties = %v, want %v", decoded.Properties, tt.pkt.Properties)
			}
		})
	}
}

func TestPublishRemainingLengthBoundaries(t *testing.T) {
	t.Parallel()
	const topic = "t/b"
	tests := []struct {
		remaining int
		headerLen int
	}{
		{127, 2},
		{128, 3},
		{16383, 3},
		{16384, 4},
		{2097151, 4},
		{2097152, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.remaining), func(t *testing.T) {
			pkt := &PublishPacket{
				Topic:    []byte(topic),
				QoS:      1,
				PacketID: 42,
				Payload:  bytes.Repeat([]byte{0xA5}, tt.remaining-2-len(topic)-2),
				Version:  4,
			}
			if got, want := pkt.EncodedLen(), tt.headerLen+tt.remaining; got != want {
				t.Fatalf("EncodedLen() = %d, want %d", got, want)
			}

			buf := make([]byte, pkt.EncodedLen())
			if _, err := pkt.Encode(buf[:len(buf)-1]); !errors.Is(err, ErrBufferOverflow) {
				t.Errorf("Encode() into short buffer error = %v, want ErrBufferOverflow", err)
			}
			n, err := pkt.Encode(buf)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if n != len(buf) {
				t.Fatalf("Encode() wrote %d bytes, want %d", n, len(buf))
			}

			header, headerLen, err := DecodeFixedHeader(buf)
			if err != nil {
				t.Fatalf("DecodeFixedHeader() error: %v", err)
			}
			if headerLen != tt.headerLen || header.RemainingLength != tt.remaining {
				t.Errorf("header = %d bytes, remaining %d; want %d bytes, remaining %d",
					headerLen, header.RemainingLength, tt.headerLen, tt.remaining)
			}

			decoded := decodeBytes(t, buf, 4).(*PublishPacket)
			if string(decoded.Topic) != topic || decoded.QoS != 1 || decoded.PacketID != 42 {
				t.Errorf("decoded %q qos %d id %d", decoded.Topic, decoded.QoS, decoded.PacketID)
			}
			if !bytes.Equal(decoded.Payload, pkt.Payload) {
				t.Errorf("payload of %d bytes does not match %d sent", len(decoded.Payload), len(pkt.Payload))
			}
		})
	}
}

func TestPublishAliasesBuffer(t *testing.T) {
	encoded := encodeToBytes(t, &PublishPacket{Topic: []byte("a"), Payload: []byte("before"), Version: 4})
	decoded := decodeBytes(t, encoded, 4).(*PublishPacket)

	copy(encoded[len(encoded)-6:], "after!")
	if string(decoded.Payload) != "after!" {
		t.Errorf("payload = %q, expected it to alias the input buffer", decoded.Payload)
	}
}

func TestDecodePublishInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"qos1 packet ID 0", []byte{0x32, 0x05, 0x00, 0x01, 'a', 0x00, 0x00}},
		{"topic with null", []byte{0x30, 0x03, 0x00, 0x01, 0x00}},
		{"invalid utf8 topic", []byte{0x30, 0x03, 0x00, 0x01, 0xFF}},
		{"topic longer than body", []byte{0x30, 0x03, 0x00, 0x05, 'a'}},
		{"qos3", []byte{0x36, 0x05, 0x00, 0x01, 'a', 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.input, 4); !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestAckPackets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		pkt   Packet
		bytes []byte
	}{
		{"puback", &PubackPacket{PacketID: 0x1234, Version: 4}, []byte{0x40, 0x02, 0x12, 0x34}},
		{"pubrec", &PubrecPacket{PacketID: 1, Version: 4}, []byte{0x50, 0x02, 0x00, 0x01}},
		{"pubrel", &PubrelPacket{PacketID: 1, Version: 4}, []byte{0x62, 0x02, 0x00, 0x01}},
		{"pubcomp", &PubcompPacket{PacketID: 1, Version: 4}, []byte{0x70, 0x02, 0x00, 0x01}},
		{"puback v5 success", &PubackPacket{PacketID: 2, Version: 5}, []byte{0x40, 0x02, 0x00, 0x02}},
		{"puback v5 reason", &PubackPacket{PacketID: 2, ReasonCode: 0x10, Version: 5}, []byte{0x40, 0x04, 0x00, 0x02, 0x10, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeToBytes(t, tt.pkt)
			if !bytes.Equal(encoded, tt.bytes) {
				t.Fatalf("encoded = % X, want % X", encoded, tt.bytes)
			}
			decoded := decodeBytes(t, encoded, 5)
			if decoded.Type() != tt.pkt.Type() {
				t.Errorf("type = %d, want %d", decoded.Type(), tt.pkt.Type())
			}
		})
	}
}

func TestAckPacketIDZero(t *testing.T) {
	if _, _, err := Decode([]byte{0x40, 0x02, 0x00, 0x00}, 4); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestSubscribePacket(t *testing.T) {
	t.Parallel()
	pkt := &SubscribePacket{
		PacketID: 10,
		Filters: []Filter{
			{Topic: "sensors/+/temp", QoS: 1},
			{Topic: "cmd/#", QoS: 2},
		},
		Version: 4,
	}

	encoded := encodeToBytes(t, pkt)
	if encoded[0] != 0x82 {
		t.Errorf("first byte = 0x%02X, want 0x82", encoded[0])
	}

	decoded := decodeBytes(t, encoded, 4).(*SubscribePacket)
	if decoded.PacketID != pkt.PacketID {
		t.Errorf("packet ID = %d, want %d", decoded.PacketID, pkt.PacketID)
	}
	if len(decoded.Filters) != len(pkt.Filters) {
		t.Fatalf("filters = %d, want %d", len(decoded.Filters), len(pkt.Filters))
	}
	for i, f := range decoded.Filters {
		if f != pkt.Filters[i] {
			t.Errorf("filter[%d] = %+v, want %+v", i, f, pkt.Filters[i])
		}
	}
}

func TestSubscribeRequiresFilters(t *testing.T) {
	if _, err := (&SubscribePacket{PacketID: 1, Version: 4}).Encode(make([]byte, 64)); err == nil {
		t.Error("expected error for empty SUBSCRIBE")
	}
	// packet ID only, no filters
	if _, _, err := Decode([]byte{0x82, 0x02, 0x00, 0x01}, 4); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestSubackPacket(t *testing.T) {
	t.Parallel()
	pkt := &SubackPacket{PacketID: 10, ReturnCodes: []uint8{SubackQoS1, SubackFailure}, Version: 4}
	decoded := decodeBytes(t, encodeToBytes(t, pkt), 4).(*SubackPacket)
	if decoded.PacketID != 10 {
		t.Errorf("packet ID = %d, want 10", decoded.PacketID)
	}
	if !bytes.Equal(decoded.ReturnCodes, pkt.ReturnCodes) {
		t.Errorf("return codes = %v, want %v", decoded.ReturnCodes, pkt.ReturnCodes)
	}
}

func TestSubackInvalidReturnCode(t *testing.T) {
	if _, _, err := Decode([]byte{0x90, 0x03, 0x00, 0x01, 0x03}, 4); !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestUnsubscribePackets(t *testing.T) {
	t.Parallel()
	pkt := &UnsubscribePacket{PacketID: 3, Topics: []string{"a/b", "c/#"}, Version: 4}
	decoded := decodeBytes(t, encodeToBytes(t, pkt), 4).(*UnsubscribePacket)
	if decoded.PacketID != 3 || len(decoded.Topics) != 2 || decoded.Topics[1] != "c/#" {
		t.Errorf("decoded = %+v", decoded)
	}

	ack := decodeBytes(t, encodeToBytes(t, &UnsubackPacket{PacketID: 3, Version: 4}), 4).(*UnsubackPacket)
	if ack.PacketID != 3 {
		t.Errorf("UNSUBACK packet ID = %d, want 3", ack.PacketID)
	}
}

func TestControlPackets(t *testing.T) {
	tests := []struct {
		pkt   Packet
		bytes []byte
	}{
		{&PingreqPacket{}, []byte{0xC0, 0x00}},
		{&PingrespPacket{}, []byte{0xD0, 0x00}},
		{&DisconnectPacket{Version: 4}, []byte{0xE0, 0x00}},
		{&DisconnectPacket{Version: 5, ReasonCode: 0x04}, []byte{0xE0, 0x02, 0x04, 0x00}},
	}

	for _, tt := range tests {
		encoded := encodeToBytes(t, tt.pkt)
		if !bytes.Equal(encoded, tt.bytes) {
			t.Errorf("%s = % X, want % X", PacketNames[tt.pkt.Type()], encoded, tt.bytes)
		}
		decodeBytes(t, encoded, 5)
	}

	if _, _, err := Decode([]byte{0xD0, 0x01, 0x00}, 4); !errors.Is(err, ErrMalformed) {
		t.Errorf("PINGRESP with body: error = %v, want ErrMalformed", err)
	}
}
