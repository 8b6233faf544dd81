package rpc

import (
	"errors"
	"fmt"
)

// Sentinel errors for package-local conditions that callers commonly
// need to distinguish with errors.Is.
var (
	ErrNotConnected = errors.New("rpc: not connected")
	ErrShutdown     = errors.New("rpc: client is shutting down")
)

// Rejected reports an RPC-level rejection: either a version mismatch
// between the client and server ONC/RPC implementations, or an
// authentication failure. It is distinct from an *Accepted failure
// (ProgMismatch, ProcUnavail, ...), which reports a successfully
// authenticated call the server could not service.
type Rejected struct {
	// Stat is RPCMismatch or AuthError.
	Stat uint32
	// Low/High carry the supported RPC version range when Stat is
	// RPCMismatch.
	Low, High uint32
	// AuthStat carries the auth_stat sub-code when Stat is AuthError.
	AuthStat uint32
}

func (e *Rejected) Error() string {
	switch e.Stat {
	case RPCMismatch:
		return fmt.Sprintf("rpc: call rejected: RPC version mismatch (server supports %d-%d)", e.Low, e.High)
	case AuthError:
		return fmt.Sprintf("rpc: call rejected: authentication error (auth_stat=%d)", e.AuthStat)
	default:
		return fmt.Sprintf("rpc: call rejected: unknown reject stat %d", e.Stat)
	}
}

// Accepted reports a call the server accepted (and therefore
// authenticated) but could not complete, per RFC 5531 Section 7.
type Accepted struct {
	// Stat is one of ProgUnavail, ProgMismatch, ProcUnavail, GarbageArgs,
	// SystemErr.
	Stat uint32
	// Low/High carry the supported program version range when Stat is
	// ProgMismatch.
	Low, High uint32
}

func (e *Accepted) Error() string {
	switch e.Stat {
	case ProgUnavail:
		return "rpc: program unavailable"
	case ProgMismatch:
		return fmt.Sprintf("rpc: program version mismatch (server supports %d-%d)", e.Low, e.High)
	case ProcUnavail:
		return "rpc: procedure unavailable"
	case GarbageArgs:
		return "rpc: garbage arguments"
	case SystemErr:
		return "rpc: system error"
	default:
		return fmt.Sprintf("rpc: call not accepted: unknown accept stat %d", e.Stat)
	}
}
