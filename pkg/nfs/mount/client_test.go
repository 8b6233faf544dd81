package mount

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/module/nfsclient/pkg/rpc"
	"github.com/module/nfsclient/pkg/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one connection, reads one record-marked call, and
// replies with a success reply wrapping replyBody.
func fakeServer(t *testing.T, replyBody []byte) string {
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

		enc := xdr.NewEncoder()
		enc.Uint32(xid)
		enc.Uint32(rpc.Reply)
		enc.Uint32(rpc.MsgAccepted)
		enc.Uint32(rpc.AuthNone)
		enc.Opaque(nil)
		enc.Uint32(rpc.Success)
		enc.FixedOpaque(replyBody)
		reply := enc.Bytes()

		out := make([]byte, 4+len(reply))
		binary.BigEndian.PutUint32(out[0:4], 0x80000000|uint32(len(reply)))
		copy(out[4:], reply)
		_, _ = conn.Write(out)
	}()

	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, rpc.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func fhstatus3OK(fh []byte, flavors []int32) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(uint32(StatusOK))
	enc.Opaque(fh)
	_ = enc // array below written manually
	enc.Uint32(uint32(len(flavors)))
	for _, f := range flavors {
		enc.Int32(f)
	}
	return enc.Bytes()
}

func fhstatus3Err(status Status) []byte {
	enc := xdr.NewEncoder()
	enc.Uint32(uint32(status))
	return enc.Bytes()
}

func TestClientMountSuccess(t *testing.T) {
	fh := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	addr := fakeServer(t, fhstatus3OK(fh, []int32{AuthFlavorUnix}))

	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := c.Mount(ctx, "/export")
	require.NoError(t, err)
	assert.Equal(t, fh, result.FileHandle)
	assert.Equal(t, []int32{AuthFlavorUnix}, result.AuthFlavors)
}

func TestClientMountDenied(t *testing.T) {
	addr := fakeServer(t, fhstatus3Err(StatusErrAccess))

	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Mount(ctx, "/export")
	require.Error(t, err)

	var mountErr *Error
	require.ErrorAs(t, err, &mountErr)
	assert.Equal(t, StatusErrAccess, mountErr.Status)
}

func TestClientUnmount(t *testing.T) {
	addr := fakeServer(t, nil)
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Unmount(ctx, "/export"))
}

func TestClientUnmountAll(t *testing.T) {
	addr := fakeServer(t, nil)
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.UnmountAll(ctx))
}

func TestClientDump(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.Optional(true, func() {
		enc.String("192.168.1.10")
		enc.String("/export")
	})
	enc.Optional(true, func() {
		enc.String("192.168.1.11")
		enc.String("/data")
	})
	enc.Optional(false, func() {})

	addr := fakeServer(t, enc.Bytes())
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	entries, err := c.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, MountEntry{Hostname: "192.168.1.10", Directory: "/export"}, entries[0])
	assert.Equal(t, MountEntry{Hostname: "192.168.1.11", Directory: "/data"}, entries[1])
}

func TestClientDumpEmpty(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.Optional(false, func() {})

	addr := fakeServer(t, enc.Bytes())
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	entries, err := c.Dump(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClientExports(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.Optional(true, func() {
		enc.String("/export")
		enc.Optional(true, func() { enc.String("trusted-hosts") })
		enc.Optional(false, func() {})
	})
	enc.Optional(true, func() {
		enc.String("/public")
		enc.Optional(false, func() {})
	})
	enc.Optional(false, func() {})

	addr := fakeServer(t, enc.Bytes())
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	exports, err := c.Exports(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, Export{Directory: "/export", Groups: []string{"trusted-hosts"}}, exports[0])
	assert.Equal(t, Export{Directory: "/public"}, exports[1])
}

func TestClientNull(t *testing.T) {
	addr := fakeServer(t, nil)
	c := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Null(ctx))
}
