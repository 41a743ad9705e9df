package packets

import "fmt"

// PingrespPacket represents an MQTT PINGRESP control packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() uint8 {
	return PINGRESP
}

// Encode serializes the PINGRESP packet into dst.
func (p *PingrespPacket) Encode(dst []byte) (int, error) {
	return FixedHeader{PacketType: PINGRESP}.Encode(dst)
}

// DecodePingresp decodes a PINGRESP packet (no payload).
func DecodePingresp(buf []byte) (*PingrespPacket, error) {
	if len(buf) != 0 {
		return nil, fmt.Errorf("PINGRESP must not have a body")
	}
	return &PingrespPacket{}, nil
}
