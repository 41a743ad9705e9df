package packets

import (
	"bytes"
	"errors"
	"testing"
)

func TestPutVarInt(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		expected []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"127", 127, []byte{0x7F}},
		{"128", 128, []byte{0x80, 0x01}},
		{"16383", 16383, []byte{0xFF, 0x7F}},
		{"16384", 16384, []byte{0x80, 0x80, 0x01}},
		{"2097151", 2097151, []byte{0xFF, 0xFF, 0x7F}},
		{"2097152", 2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{"268435455", 268435455, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf [4]byte
			n, err := PutVarInt(buf[:], tt.value)
			if err != nil {
				t.Fatalf("PutVarInt(%d) error: %v", tt.value, err)
			}
			if !bytes.Equal(buf[:n], tt.expected) {
				t.Errorf("PutVarInt(%d) = %v, want %v", tt.value, buf[:n], tt.expected)
			}
			if VarIntLen(tt.value) != len(tt.expected) {
				t.Errorf("VarIntLen(%d) = %d, want %d", tt.value, VarIntLen(tt.value), len(tt.expected))
			}
		})
	}
}

func TestPutVarIntOutOfRange(t *testing.T) {
	var buf [8]byte
	for _, v := range []int{-1, 268435456} {
		if _, err := PutVarInt(buf[:], v); !errors.Is(err, ErrVarIntRange) {
			t.Errorf("PutVarInt(%d) error = %v, want ErrVarIntRange", v, err)
		}
		if VarIntLen(v) != 0 {
			t.Errorf("VarIntLen(%d) = %d, want 0", v, VarIntLen(v))
		}
	}
}

func TestPutVarIntShortBuffer(t *testing.T) {
	var buf [1]byte
	if _, err := PutVarInt(buf[:], 128); !errors.Is(err, ErrBufferOverflow) {
		t.Errorf("error = %v, want ErrBufferOverflow", err)
	}
}

func TestAppendVarInt(t *testing.T) {
	out, err := AppendVarInt([]byte{0xAA}, 321)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte{0xAA, 0xC1, 0x02}) {
		t.Errorf("AppendVarInt = %v", out)
	}
}

func TestDecodeVarInt(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected int
		size     int
		wantErr  error
	}{
		{"zero", []byte{0x00}, 0, 1, nil},
		{"127", []byte{0x7F}, 127, 1, nil},
		{"128", []byte{0x80, 0x01}, 128, 2, nil},
		{"16383", []byte{0xFF, 0x7F}, 16383, 2, nil},
		{"16384", []byte{0x80, 0x80, 0x01}, 16384, 3, nil},
		{"2097151", []byte{0xFF, 0xFF, 0x7F}, 2097151, 3, nil},
		{"2097152", []byte{0x80, 0x80, 0x80, 0x01}, 2097152, 4, nil},
		{"268435455", []byte{0xFF, 0xFF, 0xFF, 0x7F}, 268435455, 4, nil},
		{"trailing data ignored", []byte{0x05, 0xFF}, 5, 1, nil},
		{"too long", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, 0, 0, ErrMalformed},
		{"incomplete", []byte{0x80}, 0, 0, ErrIncomplete},
		{"empty", nil, 0, 0, ErrIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, n, err := DecodeVarInt(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodeVarInt() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeVarInt() unexpected error: %v", err)
			}
			if value != tt.expected || n != tt.size {
				t.Errorf("DecodeVarInt() = (%d, %d), want (%d, %d)", value, n, tt.expected, tt.size)
			}
		})
	}
}
