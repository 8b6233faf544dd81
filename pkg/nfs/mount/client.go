package mount

import (
	"bytes"
	"context"
	"fmt"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/module/nfsclient/pkg/rpc"
	"github.com/module/nfsclient/pkg/xdr"
)

// Client speaks the NFSv3 Mount protocol (RFC 1813 Appendix I) to one
// server, resolving export paths into root file handles.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the Mount service at addr ("host:port", typically
// resolved via pkg/portmap's GetPort for program 100005).
func Dial(ctx context.Context, addr string, opts rpc.Options) (*Client, error) {
	c, err := rpc.Dial(ctx, addr, opts)
	if err != nil {
		return nil, fmt.Errorf("mount: dial %s: %w", addr, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error { return c.rpc.Close() }

// Null pings the Mount service, verifying reachability.
func (c *Client) Null(ctx context.Context) error {
	if err := c.rpc.Call(ctx, Program, Version3, procNull, rpc.NullArgs(), nil); err != nil {
		return fmt.Errorf("mount: null: %w", err)
	}
	return nil
}

// Result is the successful outcome of an MNT call.
type Result struct {
	// FileHandle is the opaque root file handle for the mounted export.
	FileHandle []byte
	// AuthFlavors lists the authentication flavors the server accepts
	// for this mount (e.g. AuthFlavorUnix).
	AuthFlavors []int32
}

// Export describes one entry returned by the EXPORT procedure: an
// exported directory and the client groups allowed to mount it.
type Export struct {
	Directory string
	Groups    []string
}

// MountEntry describes one entry returned by DUMP: a client that
// currently has an export mounted.
type MountEntry struct {
	Hostname  string
	Directory string
}

// pathArg is the flat request shape shared by MNT and UMNT: a single
// dirpath string. Marshaled via go-xdr's reflection-based encoder,
// mirroring the teacher's own use of go-xdr to Unmarshal this exact
// request shape server-side.
type pathArg struct {
	DirPath string
}

func encodePathArg(path string) (rpc.Encodable, error) {
	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, pathArg{DirPath: path}); err != nil {
		return nil, fmt.Errorf("mount: marshal dirpath: %w", err)
	}
	raw := buf.Bytes()
	return rpc.EncodeFunc(func(enc *xdr.Encoder) { enc.Raw(raw) }), nil
}

// Mount issues MNT for path, returning the root file handle and
// accepted auth flavors on success, or an *Error wrapping a non-OK
// mountstat3 status.
//
// The fhstatus3 reply is a discriminated union (status, then handle +
// auth_flavors only if status == OK), so it is decoded by hand with
// pkg/xdr rather than go-xdr's reflection, which has no notion of a
// conditional field. The teacher's own MountResponse.Encode follows the
// identical split: go-xdr for the flat request, hand-rolled codec for
// the unioned reply.
func (c *Client) Mount(ctx context.Context, path string) (*Result, error) {
	args, err := encodePathArg(path)
	if err != nil {
		return nil, err
	}

	var result *Result
	var status Status
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		s, err := dec.Uint32()
		if err != nil {
			return err
		}
		status = Status(s)
		if status != StatusOK {
			return nil
		}

		fh, err := dec.Opaque()
		if err != nil {
			return err
		}
		if len(fh) > maxFileHandleSize {
			return fmt.Errorf("mount: file handle too large: %d bytes", len(fh))
		}

		var flavors []int32
		_, err = dec.Array(func(i int) error {
			v, err := dec.Int32()
			flavors = append(flavors, v)
			return err
		})
		if err != nil {
			return err
		}

		result = &Result{FileHandle: fh, AuthFlavors: flavors}
		return nil
	})

	if err := c.rpc.Call(ctx, Program, Version3, procMnt, args, reply); err != nil {
		return nil, fmt.Errorf("mount: mnt %q: %w", path, err)
	}
	if status != StatusOK {
		return nil, &Error{Op: fmt.Sprintf("mnt %q", path), Status: status}
	}
	return result, nil
}

// Unmount issues UMNT for path, telling the server this client is done
// with the export. UMNT returns void; servers generally do not error it.
func (c *Client) Unmount(ctx context.Context, path string) error {
	args, err := encodePathArg(path)
	if err != nil {
		return err
	}
	if err := c.rpc.Call(ctx, Program, Version3, procUmnt, args, nil); err != nil {
		return fmt.Errorf("mount: umnt %q: %w", path, err)
	}
	return nil
}

// UnmountAll issues UMNTALL, releasing every export this client has
// mounted on the server.
func (c *Client) UnmountAll(ctx context.Context) error {
	if err := c.rpc.Call(ctx, Program, Version3, procUmntAll, rpc.NullArgs(), nil); err != nil {
		return fmt.Errorf("mount: umntall: %w", err)
	}
	return nil
}

// Dump lists every client/export pair currently mounted on the server.
func (c *Client) Dump(ctx context.Context) ([]MountEntry, error) {
	var entries []MountEntry
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		for {
			var entry MountEntry
			present, err := dec.Optional(func() error {
				h, err := dec.String()
				if err != nil {
					return err
				}
				d, err := dec.String()
				if err != nil {
					return err
				}
				entry = MountEntry{Hostname: h, Directory: d}
				return nil
			})
			if err != nil {
				return err
			}
			if !present {
				return nil
			}
			entries = append(entries, entry)
		}
	})

	if err := c.rpc.Call(ctx, Program, Version3, procDump, rpc.NullArgs(), reply); err != nil {
		return nil, fmt.Errorf("mount: dump: %w", err)
	}
	return entries, nil
}

// Exports lists every export the server publishes, each with its
// allowed client-group list (an empty list conventionally means "open
// to all").
func (c *Client) Exports(ctx context.Context) ([]Export, error) {
	var exports []Export
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		for {
			var export Export
			present, err := dec.Optional(func() error {
				dir, err := dec.String()
				if err != nil {
					return err
				}
				export.Directory = dir

				for {
					groupPresent, err := dec.Optional(func() error {
						g, err := dec.String()
						if err != nil {
							return err
						}
						export.Groups = append(export.Groups, g)
						return nil
					})
					if err != nil {
						return err
					}
					if !groupPresent {
						return nil
					}
				}
			})
			if err != nil {
				return err
			}
			if !present {
				return nil
			}
			exports = append(exports, export)
		}
	})

	if err := c.rpc.Call(ctx, Program, Version3, procExport, rpc.NullArgs(), reply); err != nil {
		return nil, fmt.Errorf("mount: export: %w", err)
	}
	return exports, nil
}
