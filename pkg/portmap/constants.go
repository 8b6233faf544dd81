// Package portmap implements an ONC/RPC Portmapper v2 client (RFC 1833),
// used to resolve the NFS Mount and NFS file-protocol services' ports
// on a server before an NFSv3 mount.
package portmap

const (
	// Program is the Portmapper RPC program number.
	Program uint32 = 100000
	// Version2 is the only Portmapper version this client speaks.
	Version2 uint32 = 2
	// Port is the well-known port the Portmapper itself listens on.
	Port uint16 = 111
)

const (
	procNull    uint32 = 0
	procSet     uint32 = 1
	procUnset   uint32 = 2
	procGetport uint32 = 3
	procDump    uint32 = 4
	// procCallIt (5) is intentionally not implemented: it exists only to
	// let a caller proxy an arbitrary RPC call through the Portmapper,
	// and every modern client resolves a port with GETPORT instead.
)

// Protocol identifies the transport protocol a Mapping describes, using
// the IPPROTO_* values Portmapper's wire format expects.
type Protocol uint32

const (
	ProtoTCP Protocol = 6
	ProtoUDP Protocol = 17
)
