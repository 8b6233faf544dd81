package v3

import "fmt"

// Error wraps a non-OK nfsstat3 status returned by an NFSv3 procedure,
// carrying enough context to identify which call failed.
type Error struct {
	Op     string
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("nfs: %s: %s", e.Op, e.Status)
}

// NotFound reports StatusErrNoEnt: the named object does not exist.
type NotFound struct{ *Error }

// PermissionDenied reports StatusErrPerm or StatusErrAccess.
type PermissionDenied struct{ *Error }

// AlreadyExists reports StatusErrExist: CREATE/MKDIR with an existing
// target and a guarded or exclusive create mode.
type AlreadyExists struct{ *Error }

// NotEmpty reports StatusErrNotEmpty: RMDIR on a non-empty directory.
type NotEmpty struct{ *Error }

// IsNotDirectory reports StatusErrNotDir: an operation that required a
// directory was given something else.
type IsNotDirectory struct{ *Error }

// IsDirectory reports StatusErrIsDir: an operation that required a
// non-directory was given a directory.
type IsDirectory struct{ *Error }

// StaleHandle reports StatusErrStale: the file handle no longer refers
// to a valid object, usually because the server was restarted or the
// object was removed. Callers should drop the handle from any cache and
// may retry once after re-resolving the path.
type StaleHandle struct{ *Error }

// ProtocolError reports any nfsstat3 this client does not map to a more
// specific type.
type ProtocolError struct{ *Error }

// wrapStatus converts a non-OK nfsstat3 into the most specific error
// type available, per spec.md's POSIX-flavored error taxonomy.
func wrapStatus(op string, status Status) error {
	base := &Error{Op: op, Status: status}
	switch status {
	case StatusErrNoEnt:
		return &NotFound{base}
	case StatusErrPerm, StatusErrAccess:
		return &PermissionDenied{base}
	case StatusErrExist:
		return &AlreadyExists{base}
	case StatusErrNotEmpty:
		return &NotEmpty{base}
	case StatusErrNotDir:
		return &IsNotDirectory{base}
	case StatusErrIsDir:
		return &IsDirectory{base}
	case StatusErrStale:
		return &StaleHandle{base}
	default:
		return &ProtocolError{base}
	}
}
