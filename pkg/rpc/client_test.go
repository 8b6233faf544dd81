package rpc

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/module/nfsclient/pkg/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTCPServer accepts one connection, reads one record-marked RPC
// call, and replies with a success reply wrapping replyBody. It stands
// in for a real NFS/Portmap/Mount server in unit tests, per the
// loopback-listener convention used throughout this package's tests.
func fakeTCPServer(t *testing.T, replyBody []byte) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var header [4]byte
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			return
		}
		length := binary.BigEndian.Uint32(header[:]) & 0x7FFFFFFF
		body := make([]byte, length)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}

		dec := xdr.NewDecoder(body)
		xid, _ := dec.Uint32()

		reply := makeSuccessReply(xid, replyBody)
		out := make([]byte, 4+len(reply))
		binary.BigEndian.PutUint32(out[0:4], 0x80000000|uint32(len(reply)))
		copy(out[4:], reply)
		_, _ = conn.Write(out)
	}()

	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().String()
}

func TestClientCallSuccess(t *testing.T) {
	addr := fakeTCPServer(t, []byte{0, 0, 0, 99})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr, Options{})
	require.NoError(t, err)
	defer c.Close()

	var result uint32
	err = c.Call(ctx, 100003, 3, 1, NullArgs(), DecodeFunc(func(dec *xdr.Decoder) error {
		v, err := dec.Uint32()
		result = v
		return err
	}))
	require.NoError(t, err)
	assert.Equal(t, uint32(99), result)
}

func TestClientCallNotConnected(t *testing.T) {
	c := &Client{}
	err := c.Call(context.Background(), 100003, 3, 1, NullArgs(), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientXIDsAreUnique(t *testing.T) {
	c := &Client{xidSeed: 1}
	seen := make(map[uint32]bool)
	for i := 0; i < 1000; i++ {
		xid := c.nextXID()
		assert.False(t, seen[xid], "xid %d repeated", xid)
		seen[xid] = true
	}
}

func TestClientDialDefaultsTimeout(t *testing.T) {
	addr := fakeTCPServer(t, []byte{0, 0, 0, 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, defaultTimeout, c.opts.Timeout)
}

func TestClientCallDiscardsMismatchedXID(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var header [4]byte
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			return
		}
		length := binary.BigEndian.Uint32(header[:]) & 0x7FFFFFFF
		body := make([]byte, length)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		dec := xdr.NewDecoder(body)
		xid, _ := dec.Uint32()

		// First, send a stale reply with the wrong xid.
		stale := makeSuccessReply(xid+1, []byte{0, 0, 0, 1})
		staleFrame := make([]byte, 4+len(stale))
		binary.BigEndian.PutUint32(staleFrame[0:4], 0x80000000|uint32(len(stale)))
		copy(staleFrame[4:], stale)
		_, _ = conn.Write(staleFrame)

		// Then the real reply.
		real := makeSuccessReply(xid, []byte{0, 0, 0, 2})
		realFrame := make([]byte, 4+len(real))
		binary.BigEndian.PutUint32(realFrame[0:4], 0x80000000|uint32(len(real)))
		copy(realFrame[4:], real)
		_, _ = conn.Write(realFrame)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, l.Addr().String(), Options{})
	require.NoError(t, err)
	defer c.Close()

	var result uint32
	err = c.Call(ctx, 100003, 3, 1, NullArgs(), DecodeFunc(func(dec *xdr.Decoder) error {
		v, err := dec.Uint32()
		result = v
		return err
	}))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), result)
}
