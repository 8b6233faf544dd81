package v4

import "fmt"

// Error is the common shape of every error this package returns for a
// non-OK nfsstat4, mirroring pkg/nfs/v3's typed-error idiom so callers
// can errors.As to the specific kind they care about.
type Error struct {
	Op     string
	Status Status
}

func (e *Error) Error() string { return fmt.Sprintf("nfsv4: %s: %s", e.Op, e.Status) }

// NotFound maps NFS4ERR_NOENT.
type NotFound struct{ *Error }

// PermissionDenied maps NFS4ERR_ACCESS/NFS4ERR_PERM.
type PermissionDenied struct{ *Error }

// AlreadyExists maps NFS4ERR_EXIST.
type AlreadyExists struct{ *Error }

// NotEmpty maps NFS4ERR_NOTEMPTY.
type NotEmpty struct{ *Error }

// IsNotDirectory maps NFS4ERR_NOTDIR.
type IsNotDirectory struct{ *Error }

// IsDirectory maps NFS4ERR_ISDIR.
type IsDirectory struct{ *Error }

// StaleHandle maps NFS4ERR_STALE/NFS4ERR_FHEXPIRED: the caller's
// cached file handle (and any cache entries derived from it) must be
// dropped before retrying.
type StaleHandle struct{ *Error }

// Unrecoverable maps NFS4ERR_BADSEQID/NFS4ERR_BADSESSION/
// NFS4ERR_BADSTATEID-class failures: the session (or a specific piece
// of open state) is wedged and must be torn down rather than retried
// in place.
type Unrecoverable struct{ *Error }

// ProtocolError is the catch-all for every nfsstat4 this client does
// not give a dedicated type.
type ProtocolError struct{ *Error }

// wrapStatus maps a non-OK nfsstat4 to a typed error per spec.md §7's
// NFSv4 error table.
func wrapStatus(op string, status Status) error {
	base := &Error{Op: op, Status: status}
	switch status {
	case StatusErrNoEnt:
		return &NotFound{base}
	case StatusErrAccess, StatusErrPerm:
		return &PermissionDenied{base}
	case StatusErrExist:
		return &AlreadyExists{base}
	case StatusErrNotEmpty:
		return &NotEmpty{base}
	case StatusErrNotDir:
		return &IsNotDirectory{base}
	case StatusErrIsDir:
		return &IsDirectory{base}
	case StatusErrStale, StatusErrFhExpired:
		return &StaleHandle{base}
	case StatusErrBadSeqid, StatusErrBadsession, StatusErrBadStateID, StatusErrOldStateID, StatusErrBadslot:
		return &Unrecoverable{base}
	default:
		return &ProtocolError{base}
	}
}

// retryable reports whether status is one this client's Execute loop
// retries in place (grace period, or server-requested backoff) rather
// than surfacing to the caller.
func retryable(status Status) bool {
	return status == StatusErrGrace || status == StatusErrDelay
}
