package v4

import (
	"fmt"

	"github.com/module/nfsclient/pkg/rpc"
	"github.com/module/nfsclient/pkg/xdr"
)

// opEntry pairs an operation's argument encoder with the decoder for
// its result, so CompoundBuilder methods can both build the request and
// hand back a value the caller reads once Execute succeeds.
type opEntry struct {
	code   uint32
	encode func(enc *xdr.Encoder)
	// decode is invoked only for an op whose individual status came back
	// NFS4_OK; ops after the first failure are never decoded.
	decode func(dec *xdr.Decoder) error
}

// CompoundBuilder accumulates NFS_ARGOP4 values for one COMPOUND call.
// It captures the session triple at construction (per spec.md §4.7) so
// that Sequence() always stamps the values the engine handed it,
// independent of what the session looks like by the time Build() runs.
type CompoundBuilder struct {
	tag        string
	sessionID  SessionID
	sequenceID uint32
	ops        []opEntry
	built      bool
}

// NewCompoundBuilder starts a builder for a compound tagged tag, bound
// to the given session and the sequence ID that SEQUENCE should stamp.
func NewCompoundBuilder(tag string, sessionID SessionID, sequenceID uint32) *CompoundBuilder {
	return &CompoundBuilder{tag: tag, sessionID: sessionID, sequenceID: sequenceID}
}

func (b *CompoundBuilder) add(code uint32, encode func(enc *xdr.Encoder), decode func(dec *xdr.Decoder) error) {
	if b.built {
		panic("v4: CompoundBuilder reused after Build")
	}
	b.ops = append(b.ops, opEntry{code: code, encode: encode, decode: decode})
}

// bumpSequenceID increments the sequence ID that Sequence() stamps into
// the SEQUENCE op, in place. Build() returns an Encodable that reads
// b.sequenceID lazily on every Encode call, so a retry of the same
// built compound picks up the bumped value without rebuilding.
func (b *CompoundBuilder) bumpSequenceID() {
	b.sequenceID++
}

// Sequence adds the mandatory leading SEQUENCE op for OPERATING-state
// compounds. slot_id, highest_slot, and cache_this are always 0/0/false
// for this single-slot client, per spec.md §4.6.
func (b *CompoundBuilder) Sequence() *CompoundBuilder {
	b.add(opSequence, func(enc *xdr.Encoder) {
		encodeSessionID(enc, b.sessionID)
		enc.Uint32(b.sequenceID)
		enc.Uint32(0) // slotid
		enc.Uint32(0) // highest_slotid
		enc.Bool(false)
	}, func(dec *xdr.Decoder) error {
		if _, err := decodeSessionID(dec); err != nil {
			return err
		}
		if _, err := dec.Uint32(); err != nil { // sr_sequenceid echoed back
			return err
		}
		if _, err := dec.Uint32(); err != nil { // sr_slotid
			return err
		}
		if _, err := dec.Uint32(); err != nil { // sr_highest_slotid
			return err
		}
		if _, err := dec.Uint32(); err != nil { // sr_target_highest_slotid
			return err
		}
		_, err := dec.Uint32() // sr_status_flags
		return err
	})
	return b
}

// PutFH sets the current file handle to fh.
func (b *CompoundBuilder) PutFH(fh []byte) *CompoundBuilder {
	b.add(opPutfh, func(enc *xdr.Encoder) { encodeHandle4(enc, fh) }, func(dec *xdr.Decoder) error { return nil })
	return b
}

// PutRootFH sets the current file handle to the server's pseudo-root.
func (b *CompoundBuilder) PutRootFH() *CompoundBuilder {
	b.add(opPutrootfh, func(enc *xdr.Encoder) {}, func(dec *xdr.Decoder) error { return nil })
	return b
}

// GetFH reads the current file handle into *out once the compound
// succeeds.
func (b *CompoundBuilder) GetFH(out *[]byte) *CompoundBuilder {
	b.add(opGetfh, func(enc *xdr.Encoder) {}, func(dec *xdr.Decoder) error {
		fh, err := readHandle4(dec)
		if err != nil {
			return err
		}
		*out = fh
		return nil
	})
	return b
}

// Lookup resolves name under the current file handle, making the
// result the new current file handle.
func (b *CompoundBuilder) Lookup(name string) *CompoundBuilder {
	b.add(opLookup, func(enc *xdr.Encoder) { enc.String(name) }, func(dec *xdr.Decoder) error { return nil })
	return b
}

// GetAttr requests RequestedAttrBitmap() for the current file handle,
// decoding the result into *out.
func (b *CompoundBuilder) GetAttr(out *FileAttr4) *CompoundBuilder {
	bitmap := RequestedAttrBitmap()
	b.add(opGetattr, func(enc *xdr.Encoder) { encodeBitmap(enc, bitmap) }, func(dec *xdr.Decoder) error {
		attr, err := decodeFattr4(dec)
		if err != nil {
			return err
		}
		*out = attr
		return nil
	})
	return b
}

// SetAttrSize sets the current file handle's size (used by the
// high-throughput truncate path); guard stateid is typically the
// stateid returned by a preceding OPEN.
func (b *CompoundBuilder) SetAttrSize(stateid StateID, size uint64) *CompoundBuilder {
	b.add(opSetattr, func(enc *xdr.Encoder) {
		encodeStateID(enc, stateid)
		encodeSizeModeFattr4(enc, &size, nil)
	}, func(dec *xdr.Decoder) error {
		_, err := decodeBitmap(dec) // attrsset, unused
		return err
	})
	return b
}

// Access requests the given access bits (ACCESS4_READ etc.) for the
// current file handle, decoding the server-granted subset into *out.
func (b *CompoundBuilder) Access(requested uint32, out *uint32) *CompoundBuilder {
	b.add(opAccess, func(enc *xdr.Encoder) { enc.Uint32(requested) }, func(dec *xdr.Decoder) error {
		if _, err := dec.Uint32(); err != nil { // supported
			return err
		}
		granted, err := dec.Uint32()
		*out = granted
		return err
	})
	return b
}

// ReadDirEntry4 is one entry from a READDIR op.
type ReadDirEntry4 struct {
	Cookie uint64
	Name   string
	Attr   FileAttr4
}

// ReadDirResult4 is the decoded result of a READDIR op.
type ReadDirResult4 struct {
	Verifier [verifierSize]byte
	Entries  []ReadDirEntry4
	EOF      bool
}

// ReadDir lists entries of the current file handle (which must be a
// directory), starting after cookie using verifier from a prior call.
func (b *CompoundBuilder) ReadDir(cookie uint64, verifier [verifierSize]byte, dircount, maxcount uint32, out *ReadDirResult4) *CompoundBuilder {
	bitmap := RequestedAttrBitmap()
	b.add(opReaddir, func(enc *xdr.Encoder) {
		enc.Uint64(cookie)
		enc.FixedOpaque(verifier[:])
		enc.Uint32(dircount)
		enc.Uint32(maxcount)
		encodeBitmap(enc, bitmap)
	}, func(dec *xdr.Decoder) error {
		verf, err := dec.FixedOpaque(verifierSize)
		if err != nil {
			return err
		}
		var result ReadDirResult4
		copy(result.Verifier[:], verf)

		for {
			present, err := dec.Optional(func() error {
				var e ReadDirEntry4
				if e.Cookie, err = dec.Uint64(); err != nil {
					return err
				}
				if e.Name, err = dec.String(); err != nil {
					return err
				}
				if e.Attr, err = decodeFattr4(dec); err != nil {
					return err
				}
				result.Entries = append(result.Entries, e)
				return nil
			})
			if err != nil {
				return err
			}
			if !present {
				break
			}
		}
		if result.EOF, err = dec.Bool(); err != nil {
			return err
		}
		*out = result
		return nil
	})
	return b
}

// SaveFH saves the current file handle for a later RestoreFH.
func (b *CompoundBuilder) SaveFH() *CompoundBuilder {
	b.add(opSavefh, func(enc *xdr.Encoder) {}, func(dec *xdr.Decoder) error { return nil })
	return b
}

// RestoreFH restores the file handle saved by a prior SaveFH, making it
// current again.
func (b *CompoundBuilder) RestoreFH() *CompoundBuilder {
	b.add(opRestorefh, func(enc *xdr.Encoder) {}, func(dec *xdr.Decoder) error { return nil })
	return b
}

// Rename renames oldName (under the saved file handle) to newName
// (under the current file handle). Callers build the SAVEFH/PUTFH pair
// per spec.md's "Rename" compound before calling this.
func (b *CompoundBuilder) Rename(oldName, newName string) *CompoundBuilder {
	b.add(opRename, func(enc *xdr.Encoder) {
		enc.String(oldName)
		enc.String(newName)
	}, func(dec *xdr.Decoder) error {
		// change_info4 x2 (before/after on both directories), unused.
		for i := 0; i < 2; i++ {
			if err := skipChangeInfo(dec); err != nil {
				return err
			}
		}
		return nil
	})
	return b
}

func skipChangeInfo(dec *xdr.Decoder) error {
	if _, err := dec.Bool(); err != nil { // atomic
		return err
	}
	if _, err := dec.Uint64(); err != nil { // before
		return err
	}
	_, err := dec.Uint64() // after
	return err
}

// Remove unlinks name from the current (directory) file handle.
func (b *CompoundBuilder) Remove(name string) *CompoundBuilder {
	b.add(opRemove, func(enc *xdr.Encoder) { enc.String(name) }, func(dec *xdr.Decoder) error {
		return skipChangeInfo(dec)
	})
	return b
}

// OpenResult4 is the decoded result of an OPEN op.
type OpenResult4 struct {
	StateID StateID
	RFlags  uint32
}

// Open opens name under the current (directory) file handle with the
// given share access/deny, optionally creating it with createSize and
// createMode. An empty name with access containing ShareAccessWrite and
// create=true is not valid; callers creating a file always pass name.
func (b *CompoundBuilder) Open(clientID uint64, ownerID []byte, seqid uint32, name string, access, deny uint32, create bool, createMode CreateMode4, createSize *uint64, createFileMode *uint32, out *OpenResult4) *CompoundBuilder {
	b.add(opOpen, func(enc *xdr.Encoder) {
		enc.Uint32(seqid)
		enc.Uint32(access | ShareAccessWantNoDeleg)
		enc.Uint32(deny)
		enc.Uint64(clientID)
		enc.Opaque(ownerID)

		if create {
			enc.UnionDiscriminant(OpenCreate)
			enc.UnionDiscriminant(uint32(createMode))
			if createMode == Exclusive4 {
				enc.FixedOpaque(make([]byte, verifierSize))
			} else {
				encodeSizeModeFattr4(enc, createSize, createFileMode)
			}
		} else {
			enc.UnionDiscriminant(OpenNoCreate)
		}

		enc.UnionDiscriminant(ClaimNull)
		enc.String(name)
	}, func(dec *xdr.Decoder) error {
		stateid, err := decodeStateID(dec)
		if err != nil {
			return err
		}
		if err := skipChangeInfo(dec); err != nil {
			return err
		}
		rflags, err := dec.Uint32()
		if err != nil {
			return err
		}
		if _, err := decodeBitmap(dec); err != nil { // attrset
			return err
		}
		// delegation: discriminant OPEN_DELEGATE_NONE(0) expected since
		// this client always requests ShareAccessWantNoDeleg.
		if _, err := dec.UnionDiscriminant(); err != nil {
			return err
		}
		*out = OpenResult4{StateID: stateid, RFlags: rflags}
		return nil
	})
	return b
}

// Close closes the open identified by stateid, decoding the
// post-close stateid into *out.
func (b *CompoundBuilder) Close(seqid uint32, stateid StateID, out *StateID) *CompoundBuilder {
	b.add(opClose, func(enc *xdr.Encoder) {
		enc.Uint32(seqid)
		encodeStateID(enc, stateid)
	}, func(dec *xdr.Decoder) error {
		s, err := decodeStateID(dec)
		if err != nil {
			return err
		}
		*out = s
		return nil
	})
	return b
}

// ReadResult4 is the decoded result of a READ op.
type ReadResult4 struct {
	EOF  bool
	Data []byte
}

// Read reads count bytes at offset from the current file handle, using
// stateid from a preceding OPEN (or AnonymousStateID for stateless
// reads some servers permit).
func (b *CompoundBuilder) Read(stateid StateID, offset uint64, count uint32, out *ReadResult4) *CompoundBuilder {
	b.add(opRead, func(enc *xdr.Encoder) {
		encodeStateID(enc, stateid)
		enc.Uint64(offset)
		enc.Uint32(count)
	}, func(dec *xdr.Decoder) error {
		eof, err := dec.Bool()
		if err != nil {
			return err
		}
		data, err := dec.Opaque()
		if err != nil {
			return err
		}
		*out = ReadResult4{EOF: eof, Data: data}
		return nil
	})
	return b
}

// WriteResult4 is the decoded result of a WRITE op.
type WriteResult4 struct {
	Count     uint32
	Committed uint32
	Verifier  [verifierSize]byte
}

// Write stores data at offset in the current file handle under stateid.
func (b *CompoundBuilder) Write(stateid StateID, offset uint64, data []byte, stable uint32, out *WriteResult4) *CompoundBuilder {
	b.add(opWrite, func(enc *xdr.Encoder) {
		encodeStateID(enc, stateid)
		enc.Uint64(offset)
		enc.Uint32(stable)
		enc.Opaque(data)
	}, func(dec *xdr.Decoder) error {
		count, err := dec.Uint32()
		if err != nil {
			return err
		}
		committed, err := dec.Uint32()
		if err != nil {
			return err
		}
		verf, err := dec.FixedOpaque(verifierSize)
		if err != nil {
			return err
		}
		var result WriteResult4
		result.Count = count
		result.Committed = committed
		copy(result.Verifier[:], verf)
		*out = result
		return nil
	})
	return b
}

// Create makes a non-regular object (directory, symlink, device, fifo)
// named name under the current (directory) file handle. Regular files
// are created via Open, per RFC 8881.
func (b *CompoundBuilder) Create(objType FType4, linkData string, name string, size *uint64, mode *uint32) *CompoundBuilder {
	b.add(opCreate, func(enc *xdr.Encoder) {
		enc.UnionDiscriminant(uint32(objType))
		if objType == TypeLnk {
			enc.String(linkData)
		}
		enc.String(name)
		encodeSizeModeFattr4(enc, size, mode)
	}, func(dec *xdr.Decoder) error {
		if err := skipChangeInfo(dec); err != nil {
			return err
		}
		_, err := decodeBitmap(dec) // attrset
		return err
	})
	return b
}

// Link creates a hard link named newName, under the current file
// handle, to the file handle saved by a prior SaveFH.
func (b *CompoundBuilder) Link(newName string) *CompoundBuilder {
	b.add(opLink, func(enc *xdr.Encoder) { enc.String(newName) }, func(dec *xdr.Decoder) error {
		return skipChangeInfo(dec)
	})
	return b
}

// Readlink returns the target of the symlink named by the current file
// handle into *out.
func (b *CompoundBuilder) Readlink(out *string) *CompoundBuilder {
	b.add(opReadlink, func(enc *xdr.Encoder) {}, func(dec *xdr.Decoder) error {
		target, err := dec.String()
		if err != nil {
			return err
		}
		*out = target
		return nil
	})
	return b
}

// ReclaimComplete tells the server this client has finished reclaiming
// any state from a prior instance; rca_one_fs is always false here
// since this client reclaims nothing (a fresh client ID every run).
func (b *CompoundBuilder) ReclaimComplete() *CompoundBuilder {
	b.add(opReclaimComplete, func(enc *xdr.Encoder) { enc.Bool(false) }, func(dec *xdr.Decoder) error { return nil })
	return b
}

// opResult is one decoded (or failed) operation result from a COMPOUND
// reply.
type opResult struct {
	code   uint32
	status Status
}

// CompoundResult is the outcome of Build()+Engine.Execute(): the
// overall status (the last op's status) and the per-op statuses/errors
// encountered along the way, useful for diagnosing where a multi-op
// compound stopped.
type CompoundResult struct {
	Status Status
	Ops    []opResult
}

// Build finalizes the compound, returning the RPC-encodable arguments.
// It is one-shot: calling any builder method afterwards panics.
func (b *CompoundBuilder) Build() rpc.Encodable {
	ops := b.ops
	b.built = true
	tag := b.tag
	return rpc.EncodeFunc(func(enc *xdr.Encoder) {
		enc.String(tag)
		enc.Uint32(MinorVersion)
		enc.Uint32(uint32(len(ops)))
		for _, op := range ops {
			enc.Uint32(op.code)
			op.encode(enc)
		}
	})
}

// decode consumes a COMPOUND reply body, invoking each op's decoder in
// turn until a non-OK status is hit or all ops are consumed.
func (b *CompoundBuilder) decode(dec *xdr.Decoder) (*CompoundResult, error) {
	return decodeCompoundReply(dec, b.ops)
}

// decodeCompoundReply is the shared COMPOUND reply walker used by both
// CompoundBuilder (for OPERATING-state calls) and the Engine's
// bootstrap calls (EXCHANGE_ID/CREATE_SESSION, which precede any
// session and so never go through a CompoundBuilder).
func decodeCompoundReply(dec *xdr.Decoder, ops []opEntry) (*CompoundResult, error) {
	status, err := dec.Uint32()
	if err != nil {
		return nil, err
	}
	if _, err := dec.String(); err != nil { // echoed tag
		return nil, err
	}
	n, err := dec.Uint32()
	if err != nil {
		return nil, err
	}

	result := &CompoundResult{Status: Status(status)}
	for i := uint32(0); i < n; i++ {
		code, err := dec.Uint32()
		if err != nil {
			return nil, err
		}
		opStat, err := dec.Uint32()
		if err != nil {
			return nil, err
		}
		result.Ops = append(result.Ops, opResult{code: code, status: Status(opStat)})

		if Status(opStat) != StatusOK {
			continue
		}
		if int(i) >= len(ops) {
			return nil, fmt.Errorf("nfsv4: compound reply has more results (%d) than ops requested (%d)", n, len(ops))
		}
		if err := ops[i].decode(dec); err != nil {
			return nil, fmt.Errorf("nfsv4: decode op %d (code %d): %w", i, code, err)
		}
	}
	return result, nil
}

// LookupPathComponentResult is the outcome of LookupPathComponent: the
// child's file handle and attributes.
type LookupPathComponentResult struct {
	Handle []byte
	Attr   FileAttr4
}

// LookupPathComponent builds the "Lookup path component" compound from
// spec.md's common-compounds table: SEQUENCE, PUTFH(parent),
// LOOKUP(name), GETFH, GETATTR.
func (b *CompoundBuilder) LookupPathComponent(parent []byte, name string, out *LookupPathComponentResult) *CompoundBuilder {
	b.PutFH(parent)
	b.Lookup(name)
	b.GetFH(&out.Handle)
	b.GetAttr(&out.Attr)
	return b
}

// ReadDirCompound builds the "Read dir" compound: SEQUENCE, PUTFH(dir),
// ACCESS, READDIR(cookie, verifier). granted receives the server's
// ACCESS response (unused by most callers, but surfaced since the
// compound always requests it).
func (b *CompoundBuilder) ReadDirCompound(dir []byte, requestedAccess uint32, granted *uint32, cookie uint64, verifier [verifierSize]byte, dircount, maxcount uint32, out *ReadDirResult4) *CompoundBuilder {
	b.PutFH(dir)
	b.Access(requestedAccess, granted)
	b.ReadDir(cookie, verifier, dircount, maxcount, out)
	return b
}

// MoveFile builds the "Rename" compound: SEQUENCE, PUTFH(src_dir),
// SAVEFH, PUTFH(dst_dir), RENAME(old, new).
func (b *CompoundBuilder) MoveFile(srcDir []byte, oldName string, dstDir []byte, newName string) *CompoundBuilder {
	b.PutFH(srcDir)
	b.SaveFH()
	b.PutFH(dstDir)
	b.Rename(oldName, newName)
	return b
}

// encodeRawCompound builds a COMPOUND call from a bare op list, used
// for the pre-session bootstrap calls that CompoundBuilder cannot
// express (it always assumes a live session to stamp into SEQUENCE).
func encodeRawCompound(tag string, ops []opEntry) rpc.Encodable {
	return rpc.EncodeFunc(func(enc *xdr.Encoder) {
		enc.String(tag)
		enc.Uint32(MinorVersion)
		enc.Uint32(uint32(len(ops)))
		for _, op := range ops {
			enc.Uint32(op.code)
			op.encode(enc)
		}
	})
}
