package packets

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// encoder writes a packet into a caller-owned buffer. The total size is
// checked up front by newEncoder, so the write helpers never bounds-check;
// field-level problems (over-long strings) are kept in err.
type encoder struct {
	buf []byte
	n   int
	err error
}

// newEncoder validates that the packet described by h fits into dst and
// writes its fixed header.
func newEncoder(dst []byte, h FixedHeader) (*encoder, error) {
	if VarIntLen(h.RemainingLength) == 0 {
		return nil, ErrVarIntRange
	}
	if h.PacketLen() > len(dst) {
		return nil, fmt.Errorf("%w: %s needs %d bytes, have %d",
			ErrBufferOverflow, PacketNames[h.PacketType], h.PacketLen(), len(dst))
	}
	n, err := h.Encode(dst)
	if err != nil {
		return nil, err
	}
	return &encoder{buf: dst, n: n}, nil
}

func (e *encoder) byte(b byte) {
	e.buf[e.n] = b
	e.n++
}

func (e *encoder) uint16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[e.n:], v)
	e.n += 2
}

// string writes a UTF-8 string with a 2-byte length prefix (MSB first).
// This is the standard MQTT string encoding format.
func (e *encoder) string(s string) {
	if len(s) > maxStringLen {
		e.err = fmt.Errorf("%w: string of %d bytes", ErrStringTooLong, len(s))
		return
	}
	e.uint16(uint16(len(s)))
	e.n += copy(e.buf[e.n:], s)
}

// binary writes binary data with a 2-byte length prefix (MSB first).
func (e *encoder) binary(b []byte) {
	if len(b) > maxStringLen {
		e.err = fmt.Errorf("%w: binary field of %d bytes", ErrStringTooLong, len(b))
		return
	}
	e.uint16(uint16(len(b)))
	e.n += copy(e.buf[e.n:], b)
}

func (e *encoder) raw(b []byte) {
	e.n += copy(e.buf[e.n:], b)
}

// properties writes a v5.0 property section: length followed by the raw,
// already-encoded properties.
func (e *encoder) properties(props []byte) {
	n, err := PutVarInt(e.buf[e.n:], len(props))
	if err != nil {
		e.err = err
		return
	}
	e.n += n
	e.raw(props)
}

func (e *encoder) finish() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	return e.n, nil
}

// propertiesLen is the encoded size of a v5.0 property section.
func propertiesLen(props []byte) int {
	return VarIntLen(len(props)) + len(props)
}

// decoder reads fields from a complete packet body. The first failure is
// kept in err and every later read returns zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf(format, args...)
	}
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) byte(what string) byte {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 1 {
		d.fail("buffer too short for %s", what)
		return 0
	}
	b := d.buf[d.off]
	d.off++
	return b
}

func (d *decoder) uint16(what string) uint16 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 2 {
		d.fail("buffer too short for %s", what)
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

// binary reads length-prefixed binary data. The result aliases the packet buffer.
func (d *decoder) binary(what string) []byte {
	if d.err != nil {
		return nil
	}
	if d.remaining() < 2 {
		d.fail("buffer too short for %s length", what)
		return nil
	}
	length := int(binary.BigEndian.Uint16(d.buf[d.off:]))
	if d.remaining() < 2+length {
		d.fail("buffer too short for %s: need %d, have %d", what, 2+length, d.remaining())
		return nil
	}
	b := d.buf[d.off+2 : d.off+2+length]
	d.off += 2 + length
	return b
}

// utf8 reads an MQTT UTF-8 string (2-byte length + data) without copying it.
func (d *decoder) utf8(what string) []byte {
	b := d.binary(what)
	if d.err != nil {
		return nil
	}
	if bytes.IndexByte(b, 0) >= 0 {
		d.fail("%s contains null byte which is not allowed", what)
		return nil
	}
	if !utf8.Valid(b) {
		d.fail("%s is not valid UTF-8", what)
		return nil
	}
	return b
}

func (d *decoder) string(what string) string {
	return string(d.utf8(what))
}

// properties skips a v5.0 property section and returns its raw bytes, or nil
// when the section is empty.
func (d *decoder) properties() []byte {
	if d.err != nil {
		return nil
	}
	length, n, err := DecodeVarInt(d.buf[d.off:])
	if err != nil {
		d.fail("invalid properties length")
		return nil
	}
	if d.remaining() < n+length {
		d.fail("buffer too short for properties data")
		return nil
	}
	d.off += n
	if length == 0 {
		return nil
	}
	props := d.buf[d.off : d.off+length]
	d.off += length
	return props
}

func (d *decoder) rest() []byte {
	if d.err != nil {
		return nil
	}
	b := d.buf[d.off:]
	d.off = len(d.buf)
	return b
}

// done reports the first error, or an error if bytes are left over.
func (d *decoder) done() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%d unexpected trailing bytes", len(d.buf)-d.off)
	}
	return nil
}
