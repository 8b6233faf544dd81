package xdr

import (
	"bytes"
	"encoding/binary"
)

// Encoder accumulates XDR-encoded values into an internal buffer.
//
// Per RFC 4506, every value is written big-endian and padded so the
// buffer stays 4-byte aligned after each field. Encoder methods never
// fail on the happy path (writes to a bytes.Buffer cannot error short of
// an allocation failure); they exist mainly to keep call sites reading
// like `enc.Uint32(x); enc.Opaque(fh)` instead of threading a raw
// *bytes.Buffer through every encode helper.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an Encoder with an empty internal buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated, encoded byte slice.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of bytes accumulated so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Uint32 encodes a 32-bit unsigned integer.
//
// Per RFC 4506 Section 4.1 (Integer).
func (e *Encoder) Uint32(v uint32) {
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

// Int32 encodes a 32-bit signed integer using two's complement.
//
// Per RFC 4506 Section 4.1 (Integer).
func (e *Encoder) Int32(v int32) {
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

// Uint64 encodes a 64-bit unsigned integer.
//
// Per RFC 4506 Section 4.5 (Hyper Integer).
func (e *Encoder) Uint64(v uint64) {
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

// Int64 encodes a 64-bit signed integer using two's complement.
//
// Per RFC 4506 Section 4.5 (Hyper Integer).
func (e *Encoder) Int64(v int64) {
	_ = binary.Write(&e.buf, binary.BigEndian, v)
}

// Bool encodes a boolean as a uint32 (0 = false, 1 = true).
//
// Per RFC 4506 Section 4.4 (Boolean).
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
	} else {
		e.Uint32(0)
	}
}

// Opaque encodes variable-length opaque data: length + data + padding.
//
// Per RFC 4506 Section 4.10 (Variable-Length Opaque Data).
func (e *Encoder) Opaque(data []byte) {
	e.Uint32(uint32(len(data)))
	e.buf.Write(data)
	e.pad(len(data))
}

// FixedOpaque encodes fixed-length opaque data: no length prefix, just
// the data padded to a 4-byte boundary. Used for file handles, session
// IDs, verifiers, and the `other` field of a state-id, all of which have
// a size known from context rather than an on-wire length.
//
// Per RFC 4506 Section 4.9 (Fixed-Length Opaque Data).
func (e *Encoder) FixedOpaque(data []byte) {
	e.buf.Write(data)
	e.pad(len(data))
}

// String encodes a variable-length string: length + data + padding.
//
// Per RFC 4506 Section 4.11 (String).
func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s)))
	e.buf.WriteString(s)
	e.pad(len(s))
}

// Raw appends already-XDR-encoded bytes verbatim, with no length prefix
// or padding of its own. Used to splice output from another XDR encoder
// (e.g. github.com/rasky/go-xdr's reflection-based Marshal, used
// elsewhere in this client for simple flat structures) into a larger
// hand-assembled message; the caller is responsible for data already
// being correctly padded.
func (e *Encoder) Raw(data []byte) {
	e.buf.Write(data)
}

// Optional encodes an XDR `optional T` (a discriminated union over
// TRUE/FALSE): writes the presence boolean, and if present, invokes
// encode to write the value itself.
func (e *Encoder) Optional(present bool, encode func()) {
	e.Bool(present)
	if present {
		encode()
	}
}

// UnionDiscriminant writes the uint32 discriminant of an XDR
// discriminated union. An alias for Uint32 kept distinct so union encode
// sites read as self-documenting.
//
// Per RFC 4506 Section 4.15 (Discriminated Unions).
func (e *Encoder) UnionDiscriminant(disc uint32) {
	e.Uint32(disc)
}

func (e *Encoder) pad(dataLen int) {
	n := padding(dataLen)
	if n == 0 {
		return
	}
	var zeros [3]byte
	e.buf.Write(zeros[:n])
}
