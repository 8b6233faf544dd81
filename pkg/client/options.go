package client

import (
	"github.com/module/nfsclient/internal/bufpool"
	"github.com/module/nfsclient/pkg/metrics"
)

// Version selects which NFS protocol version a Client speaks.
type Version int

const (
	// VersionV3 speaks the NFSv3 file and Mount protocols.
	VersionV3 Version = 3
	// VersionV4 speaks the NFSv4.1 COMPOUND session protocol.
	VersionV4 Version = 4
)

// Options configures Connect. Zero-value numeric and string fields take
// the documented default, matching spec.md §4.9's connect option table.
// Boolean fields are used as given: a zero UseSecurePort stays false, and
// only DefaultOptions sets it true.
type Options struct {
	// Version selects NFSv3 or NFSv4.1. Default: VersionV3.
	Version Version

	// UserID is the uid presented in AUTH_SYS credentials (v3) or
	// embedded in the OPEN owner (v4). Default: 0.
	UserID uint32

	// GroupID is the gid presented alongside UserID. Default: 0.
	GroupID uint32

	// TimeoutMs bounds every RPC round trip absent a caller deadline.
	// Default: 60000.
	TimeoutMs uint32

	// CharacterEncoding names the encoding component and file names are
	// assumed to use on the wire. The codec itself is byte-oriented;
	// this is metadata for callers translating to/from native strings.
	// Default: "ASCII".
	CharacterEncoding string

	// UseSecurePort requests the client originate its connection from a
	// privileged source port (TCP dials only). DefaultOptions: true; a
	// zero Options leaves it false.
	UseSecurePort bool

	// UseHandleCache enables the file-handle/attribute cache (pkg/cache)
	// for path resolution. Default: false.
	UseHandleCache bool

	// NFSPort fixes the file-protocol port, skipping the Portmapper
	// GETPORT round trip. 0 resolves it via the Portmapper (v3) or uses
	// 2049 directly (v4). Default: 0.
	NFSPort uint16

	// MountPort fixes the Mount service port for v3, skipping its own
	// Portmapper lookup. Ignored for v4. Default: 0.
	MountPort uint16

	// MaxTransferSize caps the count/data length Read and Write will
	// hand the wire in a single call, regardless of what the caller
	// requests. Default: 65536, matching bufpool's transfer tier and
	// spec.md §4.5's min(rtmax, wtmax, 65536) block-size rule.
	MaxTransferSize uint32

	// Metrics, if non-nil, observes every RPC this Client issues. See
	// pkg/metrics.NewRPCMetrics.
	Metrics metrics.RPCMetrics
}

// DefaultOptions returns the connect options spec.md §4.9 documents as
// defaults.
func DefaultOptions() Options {
	return Options{
		Version:           VersionV3,
		UserID:            0,
		GroupID:           0,
		TimeoutMs:         60000,
		CharacterEncoding: "ASCII",
		UseSecurePort:     true,
		UseHandleCache:    false,
		NFSPort:           0,
		MountPort:         0,
		MaxTransferSize:   defaultMaxTransferSize,
	}
}

func (o Options) withDefaults() Options {
	if o.TimeoutMs == 0 {
		o.TimeoutMs = 60000
	}
	if o.CharacterEncoding == "" {
		o.CharacterEncoding = "ASCII"
	}
	if o.Version == 0 {
		o.Version = VersionV3
	}
	if o.MaxTransferSize == 0 {
		o.MaxTransferSize = defaultMaxTransferSize
	}
	return o
}

// defaultMaxTransferSize is bufpool's transfer tier: the largest chunk
// Read/Write will hand the wire without an oversized, unpooled allocation.
const defaultMaxTransferSize = bufpool.DefaultTransferSize
