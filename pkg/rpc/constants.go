// Package rpc implements an ONC/RPC v2 client transport per RFC 5531.
//
// It speaks the call/reply framing used by Portmapper, NFSv3 Mount, NFSv3,
// and NFSv4.1 over either a record-marked TCP stream or a single-datagram
// UDP socket, with AUTH_NONE and AUTH_SYS credentials.
package rpc

// Message types (rpc_msg.mtype).
const (
	Call  uint32 = 0
	Reply uint32 = 1
)

// Reply states (reply_body.stat).
const (
	MsgAccepted uint32 = 0
	MsgDenied   uint32 = 1
)

// Accept statuses (accepted_reply.stat), per RFC 5531 Section 7.
const (
	Success      uint32 = 0
	ProgUnavail  uint32 = 1
	ProgMismatch uint32 = 2
	ProcUnavail  uint32 = 3
	GarbageArgs  uint32 = 4
	SystemErr    uint32 = 5
)

// Reject statuses (rejected_reply.stat), per RFC 5531 Section 7.
const (
	RPCMismatch uint32 = 0
	AuthError   uint32 = 1
)

// Auth rejection sub-statuses (auth_stat), per RFC 5531 Section 8.2.
const (
	AuthBadCred      uint32 = 1
	AuthRejectedCred uint32 = 2
	AuthBadVerf      uint32 = 3
	AuthRejectedVerf uint32 = 4
	AuthTooWeak      uint32 = 5
)

// Authentication flavors (opaque_auth.flavor), per RFC 5531 Section 8.
const (
	AuthNone  uint32 = 0
	AuthSys   uint32 = 1
	AuthShort uint32 = 2
	AuthDES   uint32 = 3
)

// RPCVersion is the only ONC/RPC version this package speaks.
const RPCVersion uint32 = 2
