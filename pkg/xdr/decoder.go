package xdr

import (
	"encoding/binary"
	"errors"
	"io"
)

// Decoder reads XDR-encoded values off a fixed byte slice.
//
// Decoder tracks how many bytes remain and returns CodecFailed the
// instant a length prefix would read past the end of the buffer, so a
// corrupt or truncated reply never drives an allocation or a read larger
// than what the transport actually delivered.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a Decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// Pos returns the current read offset.
func (d *Decoder) Pos() int {
	return d.pos
}

func (d *Decoder) take(n int, field string) ([]byte, error) {
	if n < 0 {
		return nil, fail(field, errors.New("negative length"))
	}
	if n > d.Remaining() {
		return nil, fail(field, io.ErrUnexpectedEOF)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// Uint32 decodes a 32-bit unsigned integer.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Int32 decodes a 32-bit signed integer.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Uint64 decodes a 64-bit unsigned integer.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Int64 decodes a 64-bit signed integer.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Bool decodes a boolean (any non-zero uint32 is true).
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// skipPadding advances past the 0-3 zero bytes following a
// variable-length field, per RFC 4506 Section 4.11.
func (d *Decoder) skipPadding(dataLen int) error {
	n := padding(dataLen)
	if n == 0 {
		return nil
	}
	_, err := d.take(n, "padding")
	return err
}

// Opaque decodes variable-length opaque data: length + data + padding.
//
// Per RFC 4506 Section 4.10. The decoded length is bounded by
// MaxOpaqueLength to protect against a hostile or corrupt length prefix.
func (d *Decoder) Opaque() ([]byte, error) {
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if length > MaxOpaqueLength {
		return nil, fail("opaque", errors.New("length exceeds maximum"))
	}
	data, err := d.take(int(length), "opaque")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	if err := d.skipPadding(int(length)); err != nil {
		return nil, err
	}
	return out, nil
}

// FixedOpaque decodes n bytes of fixed-length opaque data, padded to a
// 4-byte boundary but with no on-wire length prefix. Used for file
// handles, session IDs, verifiers, and state-id `other` fields, all of
// which have a length known from context.
//
// Per RFC 4506 Section 4.9.
func (d *Decoder) FixedOpaque(n int) ([]byte, error) {
	data, err := d.take(n, "fixed_opaque")
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	if err := d.skipPadding(n); err != nil {
		return nil, err
	}
	return out, nil
}

// String decodes a variable-length string: length + data + padding.
//
// Per RFC 4506 Section 4.11.
func (d *Decoder) String() (string, error) {
	data, err := d.Opaque()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Optional decodes an XDR `optional T`: reads the presence boolean and,
// if present, invokes decode to read the value itself.
func (d *Decoder) Optional(decode func() error) (bool, error) {
	present, err := d.Bool()
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}
	if err := decode(); err != nil {
		return true, err
	}
	return true, nil
}

// UnionDiscriminant reads the uint32 discriminant of an XDR
// discriminated union. An alias for Uint32 kept distinct so union decode
// sites read as self-documenting.
//
// Per RFC 4506 Section 4.15.
func (d *Decoder) UnionDiscriminant() (uint32, error) {
	return d.Uint32()
}

// Array decodes a variable-length array: a uint32 element count followed
// by n invocations of decode, one per element. The caller's decode
// closure is responsible for appending to its own backing slice.
func (d *Decoder) Array(decode func(i int) error) (int, error) {
	count, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if int(count) > d.Remaining() {
		// Every element is at least 1 byte (bool list-continuation entries
		// in particular), so this is a cheap sanity bound against a
		// corrupt count driving an unbounded decode loop.
		return 0, fail("array", errors.New("element count exceeds remaining bytes"))
	}
	for i := 0; i < int(count); i++ {
		if err := decode(i); err != nil {
			return i, err
		}
	}
	return int(count), nil
}
