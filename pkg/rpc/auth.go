package rpc

import (
	"fmt"

	"github.com/module/nfsclient/pkg/xdr"
)

// maxGIDs bounds the supplementary group list of an AUTH_SYS credential.
// RFC 5531 does not fix a limit; 16 matches what Unix NFS clients and
// servers have historically enforced (NGROUPS_MAX on most implementations
// of the era the protocol was designed for).
const maxGIDs = 16

// maxMachineNameLen bounds AUTH_SYS's machine name field against a
// corrupt or hostile length prefix.
const maxMachineNameLen = 255

// Credential builds the opaque_auth pair (credential + verifier) that
// accompanies every RPC call, per RFC 5531 Section 8.
type Credential interface {
	// EncodeCred writes this credential's flavor and body.
	EncodeCred(enc *xdr.Encoder)
	// EncodeVerf writes the verifier that accompanies this credential.
	// Both AUTH_NONE and AUTH_SYS use an AUTH_NONE (empty) verifier.
	EncodeVerf(enc *xdr.Encoder)
}

// NoneAuth is the AUTH_NONE credential: no identity asserted.
type NoneAuth struct{}

func (NoneAuth) EncodeCred(enc *xdr.Encoder) {
	enc.UnionDiscriminant(AuthNone)
	enc.Opaque(nil)
}

func (NoneAuth) EncodeVerf(enc *xdr.Encoder) {
	enc.UnionDiscriminant(AuthNone)
	enc.Opaque(nil)
}

// UnixAuth is the AUTH_SYS (nee AUTH_UNIX) credential carrying a
// timestamp, the calling machine's name, and Unix-style uid/gid/groups.
//
// Per RFC 5531 Section 8.2 (renamed from AUTH_UNIX by RFC 5531's
// successor documents; on the wire it is still flavor 1).
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

func (a *UnixAuth) EncodeCred(enc *xdr.Encoder) {
	body := xdr.NewEncoder()
	body.Uint32(a.Stamp)
	body.String(a.MachineName)
	body.Uint32(a.UID)
	body.Uint32(a.GID)
	body.Uint32(uint32(len(a.GIDs)))
	for _, gid := range a.GIDs {
		body.Uint32(gid)
	}

	enc.UnionDiscriminant(AuthSys)
	enc.Opaque(body.Bytes())
}

func (a *UnixAuth) EncodeVerf(enc *xdr.Encoder) {
	// AUTH_SYS calls are accompanied by an AUTH_NONE verifier; the server
	// trusts the credential body outright.
	enc.UnionDiscriminant(AuthNone)
	enc.Opaque(nil)
}

// String formats the credential for logging, matching the teacher's
// %v-friendly Stringer on its server-side counterpart.
func (a *UnixAuth) String() string {
	return fmt.Sprintf("UnixAuth{stamp=%d machine=%q uid=%d gid=%d gids=%v}",
		a.Stamp, a.MachineName, a.UID, a.GID, a.GIDs)
}

// ParseUnixAuth decodes an AUTH_SYS credential body (the opaque bytes
// following the flavor discriminant and length).
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: empty body")
	}

	dec := xdr.NewDecoder(body)

	stamp, err := dec.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: stamp: %w", err)
	}

	nameLen, err := dec.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: machine name length: %w", err)
	}
	if nameLen > maxMachineNameLen {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: machine name too long (%d)", nameLen)
	}
	nameBytes, err := dec.FixedOpaque(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: machine name: %w", err)
	}

	uid, err := dec.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: uid: %w", err)
	}
	gid, err := dec.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: gid: %w", err)
	}

	gidCount, err := dec.Uint32()
	if err != nil {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: gid count: %w", err)
	}
	if gidCount > maxGIDs {
		return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: too many gids (%d)", gidCount)
	}
	gids := make([]uint32, gidCount)
	for i := range gids {
		gids[i], err = dec.Uint32()
		if err != nil {
			return nil, fmt.Errorf("rpc: parse AUTH_SYS credential: gid[%d]: %w", i, err)
		}
	}

	return &UnixAuth{
		Stamp:       stamp,
		MachineName: string(nameBytes),
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}, nil
}
