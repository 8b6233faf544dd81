package v4

import (
	"fmt"

	"github.com/module/nfsclient/pkg/xdr"
)

// StateID is a stateid4: a 32-bit sequence number plus a 12-byte opaque
// identifier the server assigns to track a specific piece of client
// state (an open file, a lock, a delegation).
type StateID struct {
	Seqid uint32
	Other [stateIDOtherSize]byte
}

// AnonymousStateID is the special all-zero stateid4 used where RFC 8881
// permits "no state" (e.g. a READ against a file this client has not
// OPENed).
var AnonymousStateID = StateID{}

func decodeStateID(dec *xdr.Decoder) (StateID, error) {
	var s StateID
	seqid, err := dec.Uint32()
	if err != nil {
		return StateID{}, err
	}
	s.Seqid = seqid
	other, err := dec.FixedOpaque(stateIDOtherSize)
	if err != nil {
		return StateID{}, err
	}
	copy(s.Other[:], other)
	return s, nil
}

func encodeStateID(enc *xdr.Encoder, s StateID) {
	enc.Uint32(s.Seqid)
	enc.FixedOpaque(s.Other[:])
}

// SessionID is a sessionid4: the 16-byte identifier a CREATE_SESSION
// call binds to a client ID, used by every subsequent SEQUENCE op.
type SessionID [sessionIDSize]byte

func decodeSessionID(dec *xdr.Decoder) (SessionID, error) {
	var s SessionID
	raw, err := dec.FixedOpaque(sessionIDSize)
	if err != nil {
		return SessionID{}, err
	}
	copy(s[:], raw)
	return s, nil
}

func encodeSessionID(enc *xdr.Encoder, s SessionID) {
	enc.FixedOpaque(s[:])
}

// ClientOwner identifies this client to EXCHANGE_ID: a boot-time
// verifier plus an opaque owner id, per RFC 8881 Section 18.35.
type ClientOwner struct {
	Verifier [verifierSize]byte
	OwnerID  []byte
}

func encodeClientOwner(enc *xdr.Encoder, o ClientOwner) {
	enc.FixedOpaque(o.Verifier[:])
	enc.Opaque(o.OwnerID)
}

// ChannelAttrs is a channel_attrs4: the negotiated fore/back channel
// resource limits from CREATE_SESSION. This client requests and
// accepts the server's values rather than negotiating aggressively.
type ChannelAttrs struct {
	HeaderPadSize         uint32
	MaxRequestSize        uint32
	MaxResponseSize       uint32
	MaxResponseSizeCached uint32
	MaxOperations         uint32
	MaxRequests           uint32
}

func encodeChannelAttrs(enc *xdr.Encoder, a ChannelAttrs) {
	enc.Uint32(a.HeaderPadSize)
	enc.Uint32(a.MaxRequestSize)
	enc.Uint32(a.MaxResponseSize)
	enc.Uint32(a.MaxResponseSizeCached)
	enc.Uint32(a.MaxOperations)
	enc.Uint32(a.MaxRequests)
	enc.Uint32(0) // ca_rdma_ird<1>, no RDMA connection IDs
}

func decodeChannelAttrs(dec *xdr.Decoder) (ChannelAttrs, error) {
	var a ChannelAttrs
	var err error
	if a.HeaderPadSize, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	if a.MaxRequestSize, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	if a.MaxResponseSize, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	if a.MaxResponseSizeCached, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	if a.MaxOperations, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	if a.MaxRequests, err = dec.Uint32(); err != nil {
		return ChannelAttrs{}, err
	}
	_, err = dec.Array(func(int) error {
		_, err := dec.Uint32()
		return err
	})
	return a, err
}

// Time4 is an nfstime4: seconds (signed, pre-epoch values are legal)
// plus nanoseconds.
type Time4 struct {
	Seconds  int64
	Nseconds uint32
}

func decodeTime4(dec *xdr.Decoder) (Time4, error) {
	s, err := dec.Int64()
	if err != nil {
		return Time4{}, err
	}
	ns, err := dec.Uint32()
	if err != nil {
		return Time4{}, err
	}
	return Time4{Seconds: s, Nseconds: ns}, nil
}

func encodeTime4(enc *xdr.Encoder, t Time4) {
	enc.Int64(t.Seconds)
	enc.Uint32(t.Nseconds)
}

// FileAttr4 is the subset of fattr4 this client decodes: the six
// attributes named by spec.md's bitmap (TYPE, SIZE, MODE, TIME_ACCESS,
// TIME_MODIFY, TIME_CREATE). Fields are nil when the server's response
// bitmap omitted the attribute.
type FileAttr4 struct {
	Type       FType4
	Size       *uint64
	Mode       *uint32
	TimeAccess *Time4
	TimeModify *Time4
	TimeCreate *Time4
}

// encodeHandle4 encodes an opaque file handle for PUTFH.
func encodeHandle4(enc *xdr.Encoder, fh []byte) {
	enc.Opaque(fh)
}

func readHandle4(dec *xdr.Decoder) ([]byte, error) {
	fh, err := dec.Opaque()
	if err != nil {
		return nil, err
	}
	if len(fh) > maxFileHandleSize {
		return nil, fmt.Errorf("nfsv4: file handle too large: %d bytes", len(fh))
	}
	return fh, nil
}
