package rpc

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPTransportRoundtrip(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	serverDone := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		srv := &tcpTransport{conn: conn}
		msg, err := srv.Receive(context.Background())
		if err != nil {
			return
		}
		serverDone <- msg

		_ = srv.Send(context.Background(), []byte("reply"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := DialTCP(ctx, l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(ctx, []byte("hello")))

	select {
	case got := <-serverDone:
		assert.Equal(t, []byte("hello"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive message")
	}

	reply, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("reply"), reply)
}

func TestTCPTransportReassemblesMultipleFragments(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Two fragments: "foo" (not last) then "bar" (last).
		frag1 := make([]byte, 4+3)
		binary.BigEndian.PutUint32(frag1[0:4], 3) // high bit clear: not last
		copy(frag1[4:], "foo")

		frag2 := make([]byte, 4+3)
		binary.BigEndian.PutUint32(frag2[0:4], 0x80000000|3)
		copy(frag2[4:], "bar")

		_, _ = conn.Write(frag1)
		_, _ = conn.Write(frag2)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := DialTCP(ctx, l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	msg, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("foobar"), msg)
}

func TestTCPTransportRejectsOversizedFragment(t *testing.T) {
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
		binary.BigEndian.PutUint32(header[:], 0x80000000|uint32(maxFragmentSize+1))
		_, _ = conn.Write(header[:])
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := DialTCP(ctx, l.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Receive(ctx)
	require.Error(t, err)
}

func TestUDPTransportRoundtrip(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer serverConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 65535)
		n, clientAddr, err := serverConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		_, _ = serverConn.WriteToUDP(buf[:n], clientAddr)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := DialUDP(ctx, serverConn.LocalAddr().String())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(ctx, []byte("ping")))

	reply, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), reply)

	<-done
}
