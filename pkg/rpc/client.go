package rpc

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/module/nfsclient/internal/logger"
	"github.com/module/nfsclient/internal/telemetry"
	"github.com/module/nfsclient/pkg/metrics"
	"github.com/module/nfsclient/pkg/xdr"
)

// Protocol selects the transport-layer protocol an RPC client dials.
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

// Options configures a Client.
type Options struct {
	// Protocol selects TCP (record-marked, reliable) or UDP (datagram,
	// best-effort). Portmapper and Mount traditionally run over either;
	// NFSv3/v4.1 in this client always use TCP.
	Protocol Protocol

	// Timeout bounds each Call when the caller's context carries no
	// deadline of its own. Defaults to 60s, matching common NFS client
	// mount option defaults.
	Timeout time.Duration

	// Credential is attached to every call. Defaults to AUTH_NONE.
	Credential Credential

	// SecurePort requests that the client originate its connection from
	// a privileged port in [1,1023], as required by servers enforcing
	// the traditional Unix "secure" NFS mount convention. It applies to
	// TCP only; a UDP client dials from an ephemeral port.
	SecurePort bool

	// Metrics, if non-nil, observes every Call's latency and outcome.
	Metrics metrics.RPCMetrics
}

// Client is an ONC/RPC v2 client speaking to one server address over one
// transport connection, per RFC 5531.
type Client struct {
	addr    string
	opts    Options
	cred    Credential
	xidSeed uint32
	xidCtr  atomic.Uint32
	conn    Transport
}

// Dial opens an RPC client connection to addr ("host:port").
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	cred := opts.Credential
	if cred == nil {
		cred = NoneAuth{}
	}

	conn, err := dialTransport(ctx, addr, opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		addr:    addr,
		opts:    opts,
		cred:    cred,
		xidSeed: rand.Uint32(),
		conn:    conn,
	}
	return c, nil
}

func dialTransport(ctx context.Context, addr string, opts Options) (Transport, error) {
	if opts.SecurePort {
		// bindSecurePort finds a free local privileged port and releases
		// it; a TCP dial then uses that port as its local address. A UDP
		// dial goes through DialUDP and does not use it.
		l, err := bindSecurePort(ctx, "tcp")
		if err != nil {
			return nil, err
		}
		localAddr := l.Addr().String()
		_ = l.Close()

		var d net.Dialer
		d.LocalAddr, _ = net.ResolveTCPAddr("tcp", localAddr)

		switch opts.Protocol {
		case UDP:
			return DialUDP(ctx, addr)
		default:
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, fmt.Errorf("rpc: dial tcp %s (secure port %s): %w", addr, localAddr, err)
			}
			return &tcpTransport{conn: conn}, nil
		}
	}

	switch opts.Protocol {
	case UDP:
		return DialUDP(ctx, addr)
	default:
		return DialTCP(ctx, addr)
	}
}

// nextXID returns the next transaction identifier: a random seed XORed
// with a monotonically increasing counter, so concurrent calls never
// collide within a session while remaining unpredictable across
// sessions.
func (c *Client) nextXID() uint32 {
	return c.xidSeed ^ c.xidCtr.Add(1)
}

// Call sends one RPC request and decodes its reply into reply.
//
// If ctx carries no deadline, Call applies the client's configured
// Timeout. Transport-level errors, RPC rejections (*Rejected), and
// accepted-but-unserviceable results (*Accepted) are all returned as
// errors; callers distinguish them with errors.As.
func (c *Client) Call(ctx context.Context, program, version, procedure uint32, args Encodable, reply Decodable) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "rpc.Call")
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()

	start := time.Now()
	err = c.call(ctx, program, version, procedure, args, reply)
	metrics.ObserveCall(c.opts.Metrics, fmt.Sprintf("%d.%d", program, procedure), time.Since(start), err)
	return err
}

func (c *Client) call(ctx context.Context, program, version, procedure uint32, args Encodable, reply Decodable) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	xid := c.nextXID()
	lc := logger.NewLogContext(c.addr).WithXID(xid)

	msg := buildCall(xid, program, version, procedure, c.cred, args)

	logger.DebugCtx(logger.WithContext(ctx, lc), "rpc call", logger.KeyProgram, program, logger.KeyVersion, version, logger.KeyProcedure, procedure)

	if err := c.conn.Send(ctx, msg); err != nil {
		return err
	}

	for {
		raw, err := c.conn.Receive(ctx)
		if err != nil {
			return err
		}

		replyXID, dec, err := parseReply(raw)
		if err != nil {
			return err
		}
		if replyXID != xid {
			// Stale reply from a prior call (UDP retransmit duplicate, or a
			// slow reply that arrived after its caller already timed out);
			// keep waiting for the one that matches.
			logger.WarnCtx(ctx, "rpc: discarding reply with mismatched xid", "want", xid, "got", replyXID)
			continue
		}

		if reply != nil {
			if err := reply.Decode(dec); err != nil {
				return fmt.Errorf("rpc: decode reply: %w", err)
			}
		}
		return nil
	}
}

// Close releases the underlying transport connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// LocalAddr reports the local address of the underlying connection.
func (c *Client) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// nullArgs is a convenience Encodable for procedures with no arguments
// (e.g. every protocol's procedure 0, NULL).
var nullArgs Encodable = EncodeFunc(func(enc *xdr.Encoder) {})

// NullArgs returns the shared no-op Encodable for a NULL call.
func NullArgs() Encodable { return nullArgs }
