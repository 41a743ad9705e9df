package packets

import "fmt"

// FixedHeader represents the fixed header present in all MQTT control packets.
// Format: [PacketType + Flags (1 byte)][Remaining Length (1-4 bytes)]
type FixedHeader struct {
	PacketType      uint8
	Flags           uint8
	RemainingLength int
}

// Len returns the encoded size of the header itself.
func (h FixedHeader) Len() int {
	return 1 + VarIntLen(h.RemainingLength)
}

// PacketLen returns the total encoded size of the packet this header describes.
func (h FixedHeader) PacketLen() int {
	return h.Len() + h.RemainingLength
}

// Encode writes the fixed header into dst.
func (h FixedHeader) Encode(dst []byte) (int, error) {
	if len(dst) < 1 {
		return 0, ErrBufferOverflow
	}
	dst[0] = (h.PacketType << 4) | (h.Flags & 0x0F)
	n, err := PutVarInt(dst[1:], h.RemainingLength)
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

// DecodeFixedHeader decodes a fixed header from the start of buf.
// It only needs the header bytes, not the rest of the packet.
func DecodeFixedHeader(buf []byte) (FixedHeader, int, error) {
	if len(buf) < 1 {
		return FixedHeader{}, 0, ErrIncomplete
	}

	remainingLength, n, err := DecodeVarInt(buf[1:])
	if err != nil {
		if err == ErrIncomplete {
			return FixedHeader{}, 0, err
		}
		return FixedHeader{}, 0, fmt.Errorf("%w: failed to decode remaining length", ErrMalformed)
	}

	return FixedHeader{
		PacketType:      buf[0] >> 4,
		Flags:           buf[0] & 0x0F,
		RemainingLength: remainingLength,
	}, 1 + n, nil
}

// validateFlags checks the flag nibble against the MQTT v3.1.1 table 2.2.
func (h FixedHeader) validateFlags() error {
	switch h.PacketType {
	case PUBLISH:
		qos := (h.Flags >> 1) & 0x03
		if qos == 3 {
			return fmt.Errorf("invalid QoS 3 in PUBLISH")
		}
		if qos == 0 && h.Flags&0x08 != 0 {
			return fmt.Errorf("DUP set on QoS 0 PUBLISH")
		}
	case PUBREL, SUBSCRIBE, UNSUBSCRIBE:
		if h.Flags != flagsReserved {
			return fmt.Errorf("invalid flags 0x%X for %s", h.Flags, PacketNames[h.PacketType])
		}
	default:
		if h.Flags != 0 {
			return fmt.Errorf("invalid flags 0x%X for %s", h.Flags, PacketNames[h.PacketType])
		}
	}
	return nil
}
