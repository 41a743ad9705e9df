package packets

import "fmt"

// PacketDecoder decodes the body of one packet. body is exactly RemainingLength
// bytes long. It accepts the protocol version (4 for v3.1.1, 5 for v5.0).
type PacketDecoder func(body []byte, header FixedHeader, version uint8) (Packet, error)

// packetDecoders maps packet types to their decoder functions.
var packetDecoders = map[uint8]PacketDecoder{
	CONNECT: func(body []byte, _ FixedHeader, _ uint8) (Packet, error) { return DecodeConnect(body) },
	CONNACK: func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodeConnack(body, v) },
	PUBLISH: func(body []byte, header FixedHeader, v uint8) (Packet, error) {
		return DecodePublish(body, header, v)
	},
	PUBACK:    func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodePuback(body, v) },
	PUBREC:    func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodePubrec(body, v) },
	PUBREL:    func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodePubrel(body, v) },
	PUBCOMP:   func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodePubcomp(body, v) },
	SUBSCRIBE: func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodeSubscribe(body, v) },
	SUBACK:    func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodeSuback(body, v) },
	UNSUBSCRIBE: func(body []byte, _ FixedHeader, v uint8) (Packet, error) {
		return DecodeUnsubscribe(body, v)
	},
	UNSUBACK:   func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodeUnsuback(body, v) },
	PINGREQ:    func(body []byte, _ FixedHeader, _ uint8) (Packet, error) { return DecodePingreq(body) },
	PINGRESP:   func(body []byte, _ FixedHeader, _ uint8) (Packet, error) { return DecodePingresp(body) },
	DISCONNECT: func(body []byte, _ FixedHeader, v uint8) (Packet, error) { return DecodeDisconnect(body, v) },
}

// PeekHeader decodes only the fixed header at the start of buf and reports the
// total size of the packet. Callers use it to reject packets that can never fit
// their receive buffer before the body arrives.
func PeekHeader(buf []byte) (FixedHeader, int, error) {
	header, _, err := DecodeFixedHeader(buf)
	if err != nil {
		return FixedHeader{}, 0, err
	}
	return header, header.PacketLen(), nil
}

// Decode decodes the first packet in buf.
//
// Decode is streaming-friendly: if buf holds only a prefix of a packet it
// returns ErrIncomplete and the caller should retry once more bytes have been
// appended. Any other error wraps ErrMalformed. On success it returns the
// packet and the number of bytes it occupied.
//
// Byte slices in the returned packet (topic, payload, return codes, raw
// properties) alias buf. They are only valid while buf is left untouched.
func Decode(buf []byte, version uint8) (Packet, int, error) {
	header, headerLen, err := DecodeFixedHeader(buf)
	if err != nil {
		return nil, 0, err
	}

	total := headerLen + header.RemainingLength
	if len(buf) < total {
		return nil, 0, ErrIncomplete
	}

	decoder, ok := packetDecoders[header.PacketType]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown packet type: %d", ErrMalformed, header.PacketType)
	}

	if err := header.validateFlags(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	pkt, err := decoder(buf[headerLen:total], header, version)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to decode %s: %w", ErrMalformed, PacketNames[header.PacketType], err)
	}

	return pkt, total, nil
}
