package packets

import "fmt"

// PubackPacket represents an MQTT PUBACK control packet (QoS 1 acknowledgment).
type PubackPacket struct {
	PacketID uint16

	// MQTT v5.0 fields
	ReasonCode uint8  // v5.0
	Properties []byte // v5.0
	Version    uint8  // 4 or 5
}

// Type returns the packet type.
func (p *PubackPacket) Type() uint8 {
	return PUBACK
}

// Encode serializes the PUBACK packet into dst.
func (p *PubackPacket) Encode(dst []byte) (int, error) {
	return encodeAck(dst, PUBACK, 0, p.PacketID, p.Version, p.ReasonCode, p.Properties)
}

// DecodePuback decodes a PUBACK packet body.
func DecodePuback(buf []byte, version uint8) (*PubackPacket, error) {
	id, rc, props, err := decodeAck(buf, version)
	if err != nil {
		return nil, err
	}
	return &PubackPacket{PacketID: id, ReasonCode: rc, Properties: props, Version: version}, nil
}

// encodeAck writes the layout shared by PUBACK, PUBREC, PUBREL and PUBCOMP.
// In v5.0 the reason code and properties are omitted when the reason code is
// 0x00 and there are no properties.
func encodeAck(dst []byte, packetType, flags uint8, packetID uint16, version, reasonCode uint8, props []byte) (int, error) {
	extended := version >= 5 && (reasonCode != 0 || props != nil)

	remainingLength := 2
	if extended {
		remainingLength += 1 + propertiesLen(props)
	}

	e, err := newEncoder(dst, FixedHeader{PacketType: packetType, Flags: flags, RemainingLength: remainingLength})
	if err != nil {
		return 0, err
	}

	e.uint16(packetID)
	if extended {
		e.byte(reasonCode)
		e.properties(props)
	}
	return e.finish()
}

func decodeAck(buf []byte, version uint8) (uint16, uint8, []byte, error) {
	if len(buf) < 2 {
		return 0, 0, nil, fmt.Errorf("buffer too short for packet ID")
	}

	d := &decoder{buf: buf}
	id := d.uint16("packet ID")

	var rc uint8
	var props []byte
	if version >= 5 && d.remaining() > 0 {
		rc = d.byte("reason code")
		if d.remaining() > 0 {
			props = d.properties()
		}
	}

	if err := d.done(); err != nil {
		return 0, 0, nil, err
	}
	if id == 0 {
		return 0, 0, nil, fmt.Errorf("packet ID 0 is not allowed")
	}
	return id, rc, props, nil
}
