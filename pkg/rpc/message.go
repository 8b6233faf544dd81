package rpc

import (
	"fmt"

	"github.com/module/nfsclient/pkg/xdr"
)

// Encodable is implemented by RPC call argument types.
type Encodable interface {
	Encode(enc *xdr.Encoder)
}

// Decodable is implemented by RPC reply result types.
type Decodable interface {
	Decode(dec *xdr.Decoder) error
}

// EncodeFunc/DecodeFunc adapt a plain closure to Encodable/Decodable,
// letting callers build ad hoc requests (e.g. the Portmapper's NULL
// procedure, which has no arguments) without a named type.
type EncodeFunc func(enc *xdr.Encoder)

func (f EncodeFunc) Encode(enc *xdr.Encoder) { f(enc) }

type DecodeFunc func(dec *xdr.Decoder) error

func (f DecodeFunc) Decode(dec *xdr.Decoder) error { return f(dec) }

// buildCall encodes a complete RPC call message: the call header
// (xid, msg_type=CALL, rpcvers=2, program, version, procedure), the
// credential and verifier, and the procedure-specific arguments.
//
// Per RFC 5531 Section 9 (call_body).
func buildCall(xid, program, version, procedure uint32, cred Credential, args Encodable) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(xid)
	enc.Uint32(Call)
	enc.Uint32(RPCVersion)
	enc.Uint32(program)
	enc.Uint32(version)
	enc.Uint32(procedure)
	cred.EncodeCred(enc)
	cred.EncodeVerf(enc)
	if args != nil {
		args.Encode(enc)
	}
	return enc.Bytes()
}

// parseReply decodes the reply header and, on MSG_ACCEPTED/SUCCESS,
// returns the echoed xid and a Decoder positioned at the start of the
// procedure-specific result so the caller can decode it into its own
// reply type.
//
// Per RFC 5531 Section 9 (reply_body).
func parseReply(data []byte) (uint32, *xdr.Decoder, error) {
	dec := xdr.NewDecoder(data)

	xid, err := dec.Uint32()
	if err != nil {
		return 0, nil, fmt.Errorf("rpc: parse reply: xid: %w", err)
	}
	msgType, err := dec.Uint32()
	if err != nil {
		return xid, nil, fmt.Errorf("rpc: parse reply: msg_type: %w", err)
	}
	if msgType != Reply {
		return xid, nil, fmt.Errorf("rpc: parse reply: expected REPLY, got msg_type=%d", msgType)
	}

	replyStat, err := dec.Uint32()
	if err != nil {
		return xid, nil, fmt.Errorf("rpc: parse reply: reply_stat: %w", err)
	}

	if replyStat == MsgDenied {
		rejectStat, err := dec.Uint32()
		if err != nil {
			return xid, nil, fmt.Errorf("rpc: parse reply: reject_stat: %w", err)
		}
		switch rejectStat {
		case RPCMismatch:
			low, err := dec.Uint32()
			if err != nil {
				return xid, nil, fmt.Errorf("rpc: parse reply: mismatch_info.low: %w", err)
			}
			high, err := dec.Uint32()
			if err != nil {
				return xid, nil, fmt.Errorf("rpc: parse reply: mismatch_info.high: %w", err)
			}
			return xid, nil, &Rejected{Stat: RPCMismatch, Low: low, High: high}
		case AuthError:
			authStat, err := dec.Uint32()
			if err != nil {
				return xid, nil, fmt.Errorf("rpc: parse reply: auth_stat: %w", err)
			}
			return xid, nil, &Rejected{Stat: AuthError, AuthStat: authStat}
		default:
			return xid, nil, &Rejected{Stat: rejectStat}
		}
	}

	// MSG_ACCEPTED: verifier (opaque_auth) followed by accept_stat.
	if _, err := dec.Uint32(); err != nil { // verf flavor, unused by this client
		return xid, nil, fmt.Errorf("rpc: parse reply: verf flavor: %w", err)
	}
	if _, err := dec.Opaque(); err != nil {
		return xid, nil, fmt.Errorf("rpc: parse reply: verf body: %w", err)
	}

	acceptStat, err := dec.Uint32()
	if err != nil {
		return xid, nil, fmt.Errorf("rpc: parse reply: accept_stat: %w", err)
	}

	switch acceptStat {
	case Success:
		return xid, dec, nil
	case ProgMismatch:
		low, err := dec.Uint32()
		if err != nil {
			return xid, nil, fmt.Errorf("rpc: parse reply: mismatch_info.low: %w", err)
		}
		high, err := dec.Uint32()
		if err != nil {
			return xid, nil, fmt.Errorf("rpc: parse reply: mismatch_info.high: %w", err)
		}
		return xid, nil, &Accepted{Stat: ProgMismatch, Low: low, High: high}
	default:
		return xid, nil, &Accepted{Stat: acceptStat}
	}
}
