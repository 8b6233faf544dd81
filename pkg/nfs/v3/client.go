package v3

import (
	"context"
	"fmt"
	"strings"

	"github.com/module/nfsclient/pkg/rpc"
	"github.com/module/nfsclient/pkg/xdr"
)

// Client speaks the NFSv3 file protocol (RFC 1813) to one server over a
// single RPC connection, identifying objects by opaque file handles
// obtained from pkg/nfs/mount or a prior LOOKUP.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the NFS service at addr (typically resolved via
// pkg/portmap's GetPort for program 100003, version 3).
func Dial(ctx context.Context, addr string, opts rpc.Options) (*Client, error) {
	c, err := rpc.Dial(ctx, addr, opts)
	if err != nil {
		return nil, fmt.Errorf("nfs: dial %s: %w", addr, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error { return c.rpc.Close() }

// Null pings the NFS service, verifying reachability.
func (c *Client) Null(ctx context.Context) error {
	if err := c.rpc.Call(ctx, Program, Version3, procNull, rpc.NullArgs(), nil); err != nil {
		return fmt.Errorf("nfs: null: %w", err)
	}
	return nil
}

func encodeHandle(enc *xdr.Encoder, fh []byte) {
	enc.Opaque(fh)
}

func handleArgs(fh []byte) rpc.Encodable {
	return rpc.EncodeFunc(func(enc *xdr.Encoder) { encodeHandle(enc, fh) })
}

func readHandle(dec *xdr.Decoder) ([]byte, error) {
	fh, err := dec.Opaque()
	if err != nil {
		return nil, err
	}
	if len(fh) > maxFileHandleSize {
		return nil, fmt.Errorf("nfs: file handle too large: %d bytes", len(fh))
	}
	return fh, nil
}

// decodeStatusHeader reads the leading nfsstat3 discriminant common to
// every NFSv3 reply.
func decodeStatusHeader(dec *xdr.Decoder) (Status, error) {
	s, err := dec.Uint32()
	return Status(s), err
}

// GetAttr fetches the full attribute set of the object named by fh.
func (c *Client) GetAttr(ctx context.Context, fh []byte) (Attr, error) {
	var attr Attr
	var status Status
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		attr, err = decodeAttr(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procGetAttr, handleArgs(fh), reply); err != nil {
		return Attr{}, fmt.Errorf("nfs: getattr: %w", err)
	}
	if status != StatusOK {
		return Attr{}, wrapStatus("getattr", status)
	}
	return attr, nil
}

// SetAttrResult is the outcome of a successful SetAttr call: the weak
// cache consistency data the caller can use to detect a racing writer.
type SetAttrResult struct {
	Wcc WccData
}

// SetAttr applies new, optionally guarded, attributes to fh.
func (c *Client) SetAttr(ctx context.Context, fh []byte, attrs Sattr, guard Guard) (*SetAttrResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		encodeSattr(enc, attrs)
		encodeGuard(enc, guard)
	})

	var status Status
	var result SetAttrResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		result.Wcc, err = decodeWccData(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procSetAttr, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: setattr: %w", err)
	}
	if status != StatusOK {
		return nil, wrapStatus("setattr", status)
	}
	return &result, nil
}

// LookupResult is the outcome of a successful Lookup call.
type LookupResult struct {
	Handle    []byte
	Attr      *Attr
	DirAttr   *Attr // post_op_attr of the containing directory
}

// Lookup resolves name within the directory named by dirFh.
func (c *Client) Lookup(ctx context.Context, dirFh []byte, name string) (*LookupResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, dirFh)
		enc.String(name)
	})

	var status Status
	var result LookupResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if status == StatusOK {
			if result.Handle, err = readHandle(dec); err != nil {
				return err
			}
			if result.Attr, err = decodePostOpAttr(dec); err != nil {
				return err
			}
		}
		result.DirAttr, err = decodePostOpAttr(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procLookup, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: lookup %q: %w", name, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("lookup %q", name), status)
	}
	return &result, nil
}

// Access reports which of the requested access bits (AccessRead, etc.)
// the server grants to the calling credential for fh.
func (c *Client) Access(ctx context.Context, fh []byte, requested uint32) (uint32, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint32(requested)
	})

	var status Status
	var granted uint32
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		granted, err = dec.Uint32()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procAccess, args, reply); err != nil {
		return 0, fmt.Errorf("nfs: access: %w", err)
	}
	if status != StatusOK {
		return 0, wrapStatus("access", status)
	}
	return granted, nil
}

// Readlink returns the target of the symbolic link named by fh.
func (c *Client) Readlink(ctx context.Context, fh []byte) (string, error) {
	var status Status
	var target string
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		target, err = dec.String()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procReadlink, handleArgs(fh), reply); err != nil {
		return "", fmt.Errorf("nfs: readlink: %w", err)
	}
	if status != StatusOK {
		return "", wrapStatus("readlink", status)
	}
	return target, nil
}

// ReadResult is the outcome of a successful Read call.
type ReadResult struct {
	Data []byte
	EOF  bool
	Attr *Attr
}

// Read fetches up to count bytes starting at offset from the file named
// by fh. Callers needing an entire file should loop, chunking requests
// to the server's negotiated rtpref (see FSInfo) and stopping at EOF.
func (c *Client) Read(ctx context.Context, fh []byte, offset uint64, count uint32) (*ReadResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint64(offset)
		enc.Uint32(count)
	})

	var status Status
	var result ReadResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if result.Attr, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		if _, err = dec.Uint32(); err != nil { // count, redundant with len(data)
			return err
		}
		eof, err := dec.Bool()
		if err != nil {
			return err
		}
		result.EOF = eof
		result.Data, err = dec.Opaque()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procRead, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: read: %w", err)
	}
	if status != StatusOK {
		return nil, wrapStatus("read", status)
	}
	return &result, nil
}

// WriteResult is the outcome of a successful Write call.
type WriteResult struct {
	Count    uint32
	Committed StableHow
	Verifier [writeverf3Size]byte
	Wcc      WccData
}

// Write stores data at offset in the file named by fh, requesting the
// given stability.
func (c *Client) Write(ctx context.Context, fh []byte, offset uint64, data []byte, stable StableHow) (*WriteResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint64(offset)
		enc.Uint32(uint32(len(data)))
		enc.Uint32(uint32(stable))
		enc.Opaque(data)
	})

	var status Status
	var result WriteResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if result.Wcc, err = decodeWccData(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		if result.Count, err = dec.Uint32(); err != nil {
			return err
		}
		committed, err := dec.Uint32()
		if err != nil {
			return err
		}
		result.Committed = StableHow(committed)
		verf, err := dec.FixedOpaque(writeverf3Size)
		if err != nil {
			return err
		}
		copy(result.Verifier[:], verf)
		return nil
	})

	if err := c.rpc.Call(ctx, Program, Version3, procWrite, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: write: %w", err)
	}
	if status != StatusOK {
		return nil, wrapStatus("write", status)
	}
	return &result, nil
}

// CreateResult is the outcome of a successful Create, Mkdir, or Symlink
// call.
type CreateResult struct {
	Handle  []byte
	Attr    *Attr
	DirWcc  WccData
}

func decodeCreateLikeReply(dec *xdr.Decoder) (Status, *CreateResult, error) {
	status, err := decodeStatusHeader(dec)
	if err != nil {
		return 0, nil, err
	}
	var result CreateResult
	if status == StatusOK {
		present, err := dec.Optional(func() error {
			h, err := readHandle(dec)
			if err != nil {
				return err
			}
			result.Handle = h
			return nil
		})
		if err != nil {
			return 0, nil, err
		}
		_ = present
		if result.Attr, err = decodePostOpAttr(dec); err != nil {
			return 0, nil, err
		}
	}
	if result.DirWcc, err = decodeWccData(dec); err != nil {
		return 0, nil, err
	}
	return status, &result, nil
}

// Create creates a regular file named name in the directory dirFh.
func (c *Client) Create(ctx context.Context, dirFh []byte, name string, mode CreateMode, attrs Sattr, verifier [writeverf3Size]byte) (*CreateResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, dirFh)
		enc.String(name)
		enc.Uint32(uint32(mode))
		if mode == Exclusive {
			enc.FixedOpaque(verifier[:])
		} else {
			encodeSattr(enc, attrs)
		}
	})

	var status Status
	var result *CreateResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		status, result, err = decodeCreateLikeReply(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procCreate, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: create %q: %w", name, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("create %q", name), status)
	}
	return result, nil
}

// Mkdir creates a directory named name in the directory dirFh.
func (c *Client) Mkdir(ctx context.Context, dirFh []byte, name string, attrs Sattr) (*CreateResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, dirFh)
		enc.String(name)
		encodeSattr(enc, attrs)
	})

	var status Status
	var result *CreateResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		status, result, err = decodeCreateLikeReply(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procMkdir, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: mkdir %q: %w", name, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("mkdir %q", name), status)
	}
	return result, nil
}

// Symlink creates a symbolic link named name in directory dirFh,
// pointing at target.
func (c *Client) Symlink(ctx context.Context, dirFh []byte, name, target string, attrs Sattr) (*CreateResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, dirFh)
		enc.String(name)
		encodeSattr(enc, attrs)
		enc.String(target)
	})

	var status Status
	var result *CreateResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		status, result, err = decodeCreateLikeReply(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procSymlink, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: symlink %q: %w", name, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("symlink %q", name), status)
	}
	return result, nil
}

// RemoveResult carries the directory's weak cache consistency data
// after a Remove or Rmdir.
type RemoveResult struct {
	DirWcc WccData
}

func (c *Client) removeLike(ctx context.Context, proc uint32, op string, dirFh []byte, name string) (*RemoveResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, dirFh)
		enc.String(name)
	})

	var status Status
	var result RemoveResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		result.DirWcc, err = decodeWccData(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, proc, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: %s %q: %w", op, name, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("%s %q", op, name), status)
	}
	return &result, nil
}

// Remove unlinks name from directory dirFh.
func (c *Client) Remove(ctx context.Context, dirFh []byte, name string) (*RemoveResult, error) {
	return c.removeLike(ctx, procRemove, "remove", dirFh, name)
}

// Rmdir removes the empty directory name from directory dirFh.
func (c *Client) Rmdir(ctx context.Context, dirFh []byte, name string) (*RemoveResult, error) {
	return c.removeLike(ctx, procRmdir, "rmdir", dirFh, name)
}

// RenameResult carries both directories' weak cache consistency data
// after a Rename, per RENAME3res.
type RenameResult struct {
	FromDirWcc WccData
	ToDirWcc   WccData
}

// Rename moves fromName (in directory fromFh) to toName (in directory
// toFh), per RENAME3args: two diropargs3 pairs, no separate file
// handle involved — the server resolves the moved object itself.
func (c *Client) Rename(ctx context.Context, fromFh []byte, fromName string, toFh []byte, toName string) (*RenameResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fromFh)
		enc.String(fromName)
		encodeHandle(enc, toFh)
		enc.String(toName)
	})

	var status Status
	var result RenameResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if result.FromDirWcc, err = decodeWccData(dec); err != nil {
			return err
		}
		result.ToDirWcc, err = decodeWccData(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procRename, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: rename %q -> %q: %w", fromName, toName, err)
	}
	if status != StatusOK {
		return nil, wrapStatus(fmt.Sprintf("rename %q -> %q", fromName, toName), status)
	}
	return &result, nil
}

// ReaddirResult is the outcome of a successful Readdir call.
type ReaddirResult struct {
	Entries  []DirEntry
	EOF      bool
	Cookieverf [cookieverf3Size]byte
}

// Readdir lists entries in the directory named by fh, starting after
// cookie (0 for the first call), using cookieverf from a prior call (or
// the zero value for the first call).
func (c *Client) Readdir(ctx context.Context, fh []byte, cookie uint64, cookieverf [cookieverf3Size]byte, count uint32) (*ReaddirResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint64(cookie)
		enc.FixedOpaque(cookieverf[:])
		enc.Uint32(count)
	})

	var status Status
	var result ReaddirResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		verf, err := dec.FixedOpaque(cookieverf3Size)
		if err != nil {
			return err
		}
		copy(result.Cookieverf[:], verf)

		for {
			present, err := dec.Optional(func() error {
				var e DirEntry
				if e.FileID, err = dec.Uint64(); err != nil {
					return err
				}
				if e.Name, err = dec.String(); err != nil {
					return err
				}
				if e.Cookie, err = dec.Uint64(); err != nil {
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
		result.EOF, err = dec.Bool()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procReaddir, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: readdir: %w", err)
	}
	if status != StatusOK {
		return nil, wrapStatus("readdir", status)
	}
	return &result, nil
}

// ReaddirplusResult is the outcome of a successful Readdirplus call.
type ReaddirplusResult struct {
	Entries    []DirEntryPlus
	EOF        bool
	Cookieverf [cookieverf3Size]byte
}

// Readdirplus lists entries with attributes (and, when the server
// includes them, handles) in the directory named by fh.
func (c *Client) Readdirplus(ctx context.Context, fh []byte, cookie uint64, cookieverf [cookieverf3Size]byte, dircount, maxcount uint32) (*ReaddirplusResult, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint64(cookie)
		enc.FixedOpaque(cookieverf[:])
		enc.Uint32(dircount)
		enc.Uint32(maxcount)
	})

	var status Status
	var result ReaddirplusResult
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		verf, err := dec.FixedOpaque(cookieverf3Size)
		if err != nil {
			return err
		}
		copy(result.Cookieverf[:], verf)

		for {
			present, err := dec.Optional(func() error {
				var e DirEntryPlus
				if e.FileID, err = dec.Uint64(); err != nil {
					return err
				}
				if e.Name, err = dec.String(); err != nil {
					return err
				}
				if e.Cookie, err = dec.Uint64(); err != nil {
					return err
				}
				if e.Attr, err = decodePostOpAttr(dec); err != nil {
					return err
				}
				_, err = dec.Optional(func() error {
					h, err := readHandle(dec)
					if err != nil {
						return err
					}
					e.Handle = h
					return nil
				})
				if err != nil {
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
		result.EOF, err = dec.Bool()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procReaddirplus, args, reply); err != nil {
		return nil, fmt.Errorf("nfs: readdirplus: %w", err)
	}
	if status != StatusOK {
		return nil, wrapStatus("readdirplus", status)
	}
	return &result, nil
}

// FSInfo fetches static and dynamic filesystem information for the
// filesystem containing fh, used to negotiate read/write chunk sizes.
func (c *Client) FSInfo(ctx context.Context, fh []byte) (FSInfo, error) {
	var status Status
	var info FSInfo
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		if info.Rtmax, err = dec.Uint32(); err != nil {
			return err
		}
		if info.Rtpref, err = dec.Uint32(); err != nil {
			return err
		}
		if _, err = dec.Uint32(); err != nil { // rtmult, unused
			return err
		}
		if info.Wtmax, err = dec.Uint32(); err != nil {
			return err
		}
		if info.Wtpref, err = dec.Uint32(); err != nil {
			return err
		}
		if _, err = dec.Uint32(); err != nil { // wtmult, unused
			return err
		}
		if info.Dtpref, err = dec.Uint32(); err != nil {
			return err
		}
		if info.MaxFileSize, err = dec.Uint64(); err != nil {
			return err
		}
		if info.TimeDelta, err = decodeTime(dec); err != nil {
			return err
		}
		info.Properties, err = dec.Uint32()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procFsinfo, handleArgs(fh), reply); err != nil {
		return FSInfo{}, fmt.Errorf("nfs: fsinfo: %w", err)
	}
	if status != StatusOK {
		return FSInfo{}, wrapStatus("fsinfo", status)
	}
	return info, nil
}

// Pathconf fetches POSIX pathconf-style limits for the filesystem
// containing fh.
func (c *Client) Pathconf(ctx context.Context, fh []byte) (PathConf, error) {
	var status Status
	var pc PathConf
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if _, err = decodePostOpAttr(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		if pc.LinkMax, err = dec.Uint32(); err != nil {
			return err
		}
		if pc.NameMax, err = dec.Uint32(); err != nil {
			return err
		}
		if pc.NoTrunc, err = dec.Bool(); err != nil {
			return err
		}
		if pc.ChownRestricted, err = dec.Bool(); err != nil {
			return err
		}
		if pc.CaseInsensitive, err = dec.Bool(); err != nil {
			return err
		}
		pc.CasePreserving, err = dec.Bool()
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version3, procPathconf, handleArgs(fh), reply); err != nil {
		return PathConf{}, fmt.Errorf("nfs: pathconf: %w", err)
	}
	if status != StatusOK {
		return PathConf{}, wrapStatus("pathconf", status)
	}
	return pc, nil
}

// Commit forces previously-written, unstably-stored data for fh to
// stable storage, verifying the returned verifier matches any Write
// calls being committed.
func (c *Client) Commit(ctx context.Context, fh []byte, offset uint64, count uint32) ([writeverf3Size]byte, WccData, error) {
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) {
		encodeHandle(enc, fh)
		enc.Uint64(offset)
		enc.Uint32(count)
	})

	var status Status
	var verifier [writeverf3Size]byte
	var wcc WccData
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		if status, err = decodeStatusHeader(dec); err != nil {
			return err
		}
		if wcc, err = decodeWccData(dec); err != nil {
			return err
		}
		if status != StatusOK {
			return nil
		}
		verf, err := dec.FixedOpaque(writeverf3Size)
		if err != nil {
			return err
		}
		copy(verifier[:], verf)
		return nil
	})

	if err := c.rpc.Call(ctx, Program, Version3, procCommit, args, reply); err != nil {
		return verifier, wcc, fmt.Errorf("nfs: commit: %w", err)
	}
	if status != StatusOK {
		return verifier, wcc, wrapStatus("commit", status)
	}
	return verifier, wcc, nil
}

// ResolveResult is the outcome of a successful Resolve call.
type ResolveResult struct {
	Handle []byte
	Attr   *Attr
}

// Resolve walks path (slash- or backslash-separated, "." meaning the
// root itself) from rootFH via one LOOKUP per component, returning the
// final handle and its attributes. Callers wanting to avoid repeated
// round trips for hot paths should consult a cache (pkg/cache) before
// calling Resolve, and populate it from the result afterwards.
func (c *Client) Resolve(ctx context.Context, rootFH []byte, path string) (*ResolveResult, error) {
	path = strings.ReplaceAll(path, "\\", "/")
	fh := rootFH
	var attr *Attr

	for _, name := range strings.Split(path, "/") {
		if name == "" || name == "." {
			continue
		}
		res, err := c.Lookup(ctx, fh, name)
		if err != nil {
			return nil, err
		}
		fh = res.Handle
		attr = res.Attr
	}

	if attr == nil {
		a, err := c.GetAttr(ctx, fh)
		if err != nil {
			return nil, err
		}
		attr = &a
	}
	return &ResolveResult{Handle: fh, Attr: attr}, nil
}

// BlockSize returns the effective I/O chunk size this client should use
// against a filesystem, per spec.md's min(rtmax, wtmax, 65536)
// negotiation: large enough to amortize round trips, never larger than
// what the server or this client's own buffers can move in one call.
func BlockSize(info FSInfo) uint32 {
	const maxBlock = 65536
	size := info.Rtmax
	if info.Wtmax < size {
		size = info.Wtmax
	}
	if size == 0 || size > maxBlock {
		size = maxBlock
	}
	return size
}
