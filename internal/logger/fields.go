package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging, scoped to what this NFS
// client actually logs: RPC call framing, file handles/paths, I/O
// counters, and session/protocol identifiers. Use these keys
// consistently across log statements so aggregation and querying stay
// uniform.
const (
	// Distributed tracing.
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ONC/RPC call framing.
	KeyServer    = "server"
	KeyProgram   = "program"
	KeyVersion   = "version"
	KeyProcedure = "procedure"
	KeyXID       = "xid"
	KeyShare     = "share"

	// File system operations.
	KeyHandle  = "handle"
	KeyPath    = "path"
	KeyOldPath = "old_path"
	KeyNewPath = "new_path"

	// I/O operations.
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"

	// NFSv4.1 session state.
	KeySessionID = "session_id"
	KeyClientID  = "client_id"

	// Operation metadata.
	KeyStatus  = "status"
	KeyError   = "error"
	KeyAttempt = "attempt"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Server returns a slog.Attr for the RPC server address.
func Server(addr string) slog.Attr {
	return slog.String(KeyServer, addr)
}

// Program returns a slog.Attr for an ONC/RPC program number.
func Program(program uint32) slog.Attr {
	return slog.Any(KeyProgram, program)
}

// Version returns a slog.Attr for an ONC/RPC program version.
func Version(version uint32) slog.Attr {
	return slog.Any(KeyVersion, version)
}

// Procedure returns a slog.Attr for an RPC procedure number or name.
func Procedure(proc any) slog.Attr {
	return slog.Any(KeyProcedure, proc)
}

// XID returns a slog.Attr for an RPC transaction identifier.
func XID(xid uint32) slog.Attr {
	return slog.Any(KeyXID, xid)
}

// Share returns a slog.Attr for an export/share path.
func Share(name string) slog.Attr {
	return slog.String(KeyShare, name)
}

// Handle returns a slog.Attr for a file handle, formatted as hex.
func Handle(h []byte) slog.Attr {
	return slog.String(KeyHandle, fmt.Sprintf("%x", h))
}

// Path returns a slog.Attr for a file or directory path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// OldPath returns a slog.Attr for a rename/move source path.
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for a rename/move destination path.
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// Offset returns a slog.Attr for a file offset.
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count requested.
func Count(c uint32) slog.Attr {
	return slog.Any(KeyCount, c)
}

// BytesRead returns a slog.Attr for the actual bytes read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for the actual bytes written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// EOF returns a slog.Attr for an end-of-file indicator.
func EOF(eof bool) slog.Attr {
	return slog.Bool(KeyEOF, eof)
}

// SessionID returns a slog.Attr for an NFSv4.1 session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientID returns a slog.Attr for an NFSv4 client identifier.
func ClientID(id uint64) slog.Attr {
	return slog.Uint64(KeyClientID, id)
}

// Status returns a slog.Attr for a protocol status code.
func Status(code any) slog.Attr {
	return slog.Any(KeyStatus, code)
}

// Err returns a slog.Attr for an error, or an empty attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
