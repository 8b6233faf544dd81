package rpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/module/nfsclient/internal/bufpool"
)

// maxFragmentSize bounds a single TCP record-marking fragment. NFS
// replies carrying a full read payload can be large; this is generous
// enough for any negotiated block size this client will use while still
// rejecting a corrupt fragment header that would otherwise drive an
// unbounded read.
const maxFragmentSize = 4 << 20 // 4 MiB

// Transport sends one RPC message and receives its reply. Implementations
// handle the framing differences between TCP (record-marked, streaming)
// and UDP (one message per datagram).
type Transport interface {
	// Send writes one complete RPC message (without any transport
	// framing) to the peer.
	Send(ctx context.Context, msg []byte) error
	// Receive reads and returns the next complete RPC message
	// (with transport framing already stripped).
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the underlying connection.
	Close() error
	// LocalAddr reports the local address, used for secure-port logging.
	LocalAddr() net.Addr
}

// tcpTransport implements Transport over a TCP connection using RPC
// record marking: each message is preceded by a 4-byte fragment header
// whose high bit marks the last fragment of a record and whose low 31
// bits carry the fragment length.
//
// Grounded on the teacher's handleTCPConn, inverted from server-accepts
// to a client-initiated dial: the same fragment header math applies in
// either direction.
type tcpTransport struct {
	conn net.Conn
}

// DialTCP opens a record-marked TCP transport to addr.
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial tcp %s: %w", addr, err)
	}
	return &tcpTransport{conn: conn}, nil
}

func (t *tcpTransport) Send(ctx context.Context, msg []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}

	// This client never splits a call across multiple fragments, so every
	// message is sent as a single, final fragment (high bit set).
	header := bufpool.Get(4 + len(msg))
	defer bufpool.Put(header)
	binary.BigEndian.PutUint32(header[0:4], 0x80000000|uint32(len(msg)))
	copy(header[4:], msg)

	if _, err := t.conn.Write(header); err != nil {
		return fmt.Errorf("rpc: tcp write: %w", err)
	}
	return nil
}

func (t *tcpTransport) Receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
	}

	// A reply may itself span multiple fragments; reassemble until the
	// last-fragment bit is set.
	var record []byte
	for {
		var headerBuf [4]byte
		if _, err := io.ReadFull(t.conn, headerBuf[:]); err != nil {
			return nil, fmt.Errorf("rpc: tcp read fragment header: %w", err)
		}

		headerVal := binary.BigEndian.Uint32(headerBuf[:])
		last := headerVal&0x80000000 != 0
		length := headerVal & 0x7FFFFFFF

		if length > maxFragmentSize {
			return nil, fmt.Errorf("rpc: tcp fragment too large: %d bytes", length)
		}

		frag := bufpool.Get(int(length))
		if _, err := io.ReadFull(t.conn, frag); err != nil {
			bufpool.Put(frag)
			return nil, fmt.Errorf("rpc: tcp read fragment body: %w", err)
		}
		record = append(record, frag...)
		bufpool.Put(frag)

		if last {
			break
		}
	}

	return record, nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// udpTransport implements Transport over UDP: every datagram is one
// complete, unframed RPC message (RFC 5531 Section 10).
type udpTransport struct {
	conn *net.UDPConn
}

// DialUDP opens a UDP transport to addr.
func DialUDP(ctx context.Context, addr string) (Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: resolve udp %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial udp %s: %w", addr, err)
	}
	return &udpTransport{conn: conn}, nil
}

func (t *udpTransport) Send(ctx context.Context, msg []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}
	if _, err := t.conn.Write(msg); err != nil {
		return fmt.Errorf("rpc: udp write: %w", err)
	}
	return nil
}

func (t *udpTransport) Receive(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
	}
	buf := bufpool.Get(bufpool.DefaultTransferSize) // max UDP datagram fits the transfer tier
	n, err := t.conn.Read(buf)
	if err != nil {
		bufpool.Put(buf)
		return nil, fmt.Errorf("rpc: udp read: %w", err)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	bufpool.Put(buf)
	return out, nil
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

func (t *udpTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// bindSecurePort opens a listener on network (a stream network such as
// "tcp"; it is only called with "tcp") bound to the first available
// privileged port in [1,1023], retrying on
// EADDRINUSE. This is needed before dialing out when the server requires
// the client to originate from a reserved port (the traditional Unix NFS
// "secure" mount convention).
//
// Per the teacher's convention of using net.ListenConfig.Control for
// low-level socket option tweaks (see internal/protocol/portmap/server.go
// for the sibling pattern of explicit listener setup).
func bindSecurePort(ctx context.Context, network string) (net.Listener, error) {
	var lastErr error
	for port := 1; port <= 1023; port++ {
		lc := net.ListenConfig{}
		l, err := lc.Listen(ctx, network, fmt.Sprintf(":%d", port))
		if err == nil {
			return l, nil
		}
		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("rpc: bind secure port: %w", err)
		}
	}
	return nil, fmt.Errorf("rpc: no privileged port available in [1,1023]: %w", lastErr)
}

// defaultTimeout is the default per-call RPC timeout when the caller's
// context carries no deadline.
const defaultTimeout = 60 * time.Second
