// Package xdr provides generic XDR (External Data Representation) encoding
// and decoding utilities per RFC 4506.
//
// XDR is the standard data serialization format used by Sun RPC protocols
// including Portmapper, Mount, and NFS. This package provides
// protocol-agnostic codec primitives that the rpc, portmap, and nfs
// packages build their wire formats on top of.
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package xdr

import "fmt"

// MaxOpaqueLength bounds a single variable-length opaque/string field.
// NFS protocol data rarely exceeds this in any single field; it guards
// the decoder against a corrupt or hostile length prefix driving an
// unbounded allocation.
const MaxOpaqueLength = 1024 * 1024 // 1 MiB

// CodecFailed reports a failure to encode or decode an XDR value, naming
// the field and the reason (short read, length overrun, and so on).
type CodecFailed struct {
	Field string
	Err   error
}

func (e *CodecFailed) Error() string {
	return fmt.Sprintf("xdr: %s: %v", e.Field, e.Err)
}

func (e *CodecFailed) Unwrap() error {
	return e.Err
}

func fail(field string, err error) *CodecFailed {
	return &CodecFailed{Field: field, Err: err}
}

// padding computes the number of zero bytes needed to align dataLen to a
// 4-byte boundary, per RFC 4506 Section 4.11.
func padding(dataLen int) int {
	return (4 - (dataLen % 4)) % 4
}
