package packets

import "fmt"

// PingreqPacket represents an MQTT PINGREQ control packet.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() uint8 {
	return PINGREQ
}

// Encode serializes the PINGREQ packet into dst.
func (p *PingreqPacket) Encode(dst []byte) (int, error) {
	return FixedHeader{PacketType: PINGREQ}.Encode(dst)
}

// DecodePingreq decodes a PINGREQ packet (no payload).
func DecodePingreq(buf []byte) (*PingreqPacket, error) {
	if len(buf) != 0 {
		return nil, fmt.Errorf("PINGREQ must not have a body")
	}
	return &PingreqPacket{}, nil
}
