package packets

import "fmt"

// ConnectPacket represents an MQTT CONNECT control packet.
type ConnectPacket struct {
	// Protocol name (should be "MQTT" for v3.1.1 and v5.0)
	ProtocolName string

	// Protocol level (4 for v3.1.1, 5 for v5.0)
	ProtocolLevel uint8

	// Connect flags
	CleanSession bool
	WillFlag     bool
	WillQoS      uint8
	WillRetain   bool
	PasswordFlag bool
	UsernameFlag bool

	// Keep alive timer in seconds
	KeepAlive uint16

	// Payload
	ClientID string

	// Will fields (only used if WillFlag is true)
	WillTopic      string
	WillMessage    []byte
	WillProperties []byte // MQTT v5.0, raw

	// Credentials (only used if respective flags are true)
	Username string
	Password string

	// MQTT v5.0 raw property section (without its length prefix)
	Properties []byte
}

// Type returns the packet type.
func (p *ConnectPacket) Type() uint8 {
	return CONNECT
}

func (p *ConnectPacket) flags() uint8 {
	var connectFlags uint8
	if p.CleanSession {
		connectFlags |= 0x02
	}
	if p.WillFlag {
		connectFlags |= 0x04
		connectFlags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			connectFlags |= 0x20
		}
	}
	if p.PasswordFlag {
		connectFlags |= 0x40
	}
	if p.UsernameFlag {
		connectFlags |= 0x80
	}
	return connectFlags
}

func (p *ConnectPacket) remainingLength() int {
	// Name + Level + Flags + KeepAlive
	n := 2 + len(p.ProtocolName) + 1 + 1 + 2
	if p.ProtocolLevel >= 5 {
		n += propertiesLen(p.Properties)
	}

	n += 2 + len(p.ClientID)
	if p.WillFlag {
		if p.ProtocolLevel >= 5 {
			n += propertiesLen(p.WillProperties)
		}
		n += 2 + len(p.WillTopic) + 2 + len(p.WillMessage)
	}
	if p.UsernameFlag {
		n += 2 + len(p.Username)
	}
	if p.PasswordFlag {
		n += 2 + len(p.Password)
	}
	return n
}

// Encode serializes the CONNECT packet into dst.
func (p *ConnectPacket) Encode(dst []byte) (int, error) {
	e, err := newEncoder(dst, FixedHeader{PacketType: CONNECT, RemainingLength: p.remainingLength()})
	if err != nil {
		return 0, err
	}

	// Variable header
	e.string(p.ProtocolName)
	e.byte(p.ProtocolLevel)
	e.byte(p.flags())
	e.uint16(p.KeepAlive)
	if p.ProtocolLevel >= 5 {
		e.properties(p.Properties)
	}

	// Payload
	e.string(p.ClientID)
	if p.WillFlag {
		if p.ProtocolLevel >= 5 {
			e.properties(p.WillProperties)
		}
		e.string(p.WillTopic)
		e.binary(p.WillMessage)
	}
	if p.UsernameFlag {
		e.string(p.Username)
	}
	if p.PasswordFlag {
		e.string(p.Password)
	}

	return e.finish()
}

// DecodeConnect decodes a CONNECT packet body.
// String fields are copied; WillMessage and raw properties alias buf.
func DecodeConnect(buf []byte) (*ConnectPacket, error) {
	if len(buf) < 10 {
		return nil, fmt.Errorf("buffer too short for CONNECT packet")
	}

	d := &decoder{buf: buf}
	pkt := &ConnectPacket{}

	pkt.ProtocolName = d.string("protocol name")
	pkt.ProtocolLevel = d.byte("protocol level")

	connectFlags := d.byte("connect flags")
	if connectFlags&0x01 != 0 {
		return nil, fmt.Errorf("reserved connect flag is set")
	}
	pkt.CleanSession = (connectFlags & 0x02) != 0
	pkt.WillFlag = (connectFlags & 0x04) != 0
	pkt.WillQoS = (connectFlags >> 3) & 0x03
	pkt.WillRetain = (connectFlags & 0x20) != 0
	pkt.PasswordFlag = (connectFlags & 0x40) != 0
	pkt.UsernameFlag = (connectFlags & 0x80) != 0

	if pkt.WillQoS == 3 {
		return nil, fmt.Errorf("invalid will QoS 3")
	}
	if !pkt.WillFlag && (pkt.WillQoS != 0 || pkt.WillRetain) {
		return nil, fmt.Errorf("will QoS/retain set without will flag")
	}

	pkt.KeepAlive = d.uint16("keep alive")
	if pkt.ProtocolLevel >= 5 {
		pkt.Properties = d.properties()
	}

	pkt.ClientID = d.string("client ID")

	if pkt.WillFlag {
		if pkt.ProtocolLevel >= 5 {
			pkt.WillProperties = d.properties()
		}
		pkt.WillTopic = d.string("will topic")
		pkt.WillMessage = d.binary("will message")
	}
	if pkt.UsernameFlag {
		pkt.Username = d.string("username")
	}
	if pkt.PasswordFlag {
		pkt.Password = d.string("password")
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return pkt, nil
}
