package portmap

import (
	"context"
	"fmt"

	"github.com/module/nfsclient/pkg/rpc"
	"github.com/module/nfsclient/pkg/xdr"
)

// Client resolves RPC service ports by talking to a server's
// Portmapper, per RFC 1833. It is a thin domain wrapper over
// rpc.Client scoped to program 100000, version 2.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the Portmapper at addr ("host:111" typically).
func Dial(ctx context.Context, addr string, opts rpc.Options) (*Client, error) {
	c, err := rpc.Dial(ctx, addr, opts)
	if err != nil {
		return nil, fmt.Errorf("portmap: dial %s: %w", addr, err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error { return c.rpc.Close() }

// Null pings the Portmapper, verifying reachability.
func (c *Client) Null(ctx context.Context) error {
	if err := c.rpc.Call(ctx, Program, Version2, procNull, rpc.NullArgs(), nil); err != nil {
		return fmt.Errorf("portmap: null: %w", err)
	}
	return nil
}

// GetPort resolves the port a service (program/version/protocol) is
// currently registered on. Returns 0 if the service is not registered,
// matching the Portmapper's own GETPORT semantics (it never fails the
// RPC call itself, just returns a zero port).
func (c *Client) GetPort(ctx context.Context, program, version uint32, protocol Protocol) (uint16, error) {
	req := Mapping{Program: program, Version: version, Protocol: protocol}

	var port uint32
	args := rpc.EncodeFunc(func(enc *xdr.Encoder) { req.encode(enc) })
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		v, err := dec.Uint32()
		port = v
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version2, procGetport, args, reply); err != nil {
		return 0, fmt.Errorf("portmap: getport(program=%d, version=%d, protocol=%d): %w", program, version, protocol, err)
	}
	return uint16(port), nil
}

// Dump lists every service currently registered with the Portmapper.
func (c *Client) Dump(ctx context.Context) ([]Mapping, error) {
	var mappings []Mapping
	reply := rpc.DecodeFunc(func(dec *xdr.Decoder) error {
		var err error
		mappings, err = decodeMappingList(dec)
		return err
	})

	if err := c.rpc.Call(ctx, Program, Version2, procDump, rpc.NullArgs(), reply); err != nil {
		return nil, fmt.Errorf("portmap: dump: %w", err)
	}
	return mappings, nil
}
