package rpc

import (
	"testing"
	"time"

	"github.com/module/nfsclient/pkg/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUnixAuth() *UnixAuth {
	return &UnixAuth{
		Stamp:       uint32(time.Now().Unix()),
		MachineName: "testhost",
		UID:         1000,
		GID:         1000,
		GIDs:        []uint32{4, 24, 27, 30},
	}
}

func TestUnixAuthRoundtrip(t *testing.T) {
	t.Run("EncodesAndParses", func(t *testing.T) {
		original := validUnixAuth()

		enc := xdr.NewEncoder()
		original.EncodeCred(enc)

		dec := xdr.NewDecoder(enc.Bytes())
		flavor, err := dec.UnionDiscriminant()
		require.NoError(t, err)
		assert.Equal(t, AuthSys, flavor)

		body, err := dec.Opaque()
		require.NoError(t, err)

		parsed, err := ParseUnixAuth(body)
		require.NoError(t, err)
		assert.Equal(t, original.Stamp, parsed.Stamp)
		assert.Equal(t, original.MachineName, parsed.MachineName)
		assert.Equal(t, original.UID, parsed.UID)
		assert.Equal(t, original.GID, parsed.GID)
		assert.Equal(t, original.GIDs, parsed.GIDs)
	})

	t.Run("RootCredentials", func(t *testing.T) {
		auth := &UnixAuth{Stamp: 1, MachineName: "h", UID: 0, GID: 0, GIDs: []uint32{}}

		enc := xdr.NewEncoder()
		auth.EncodeCred(enc)

		dec := xdr.NewDecoder(enc.Bytes())
		_, _ = dec.UnionDiscriminant()
		body, _ := dec.Opaque()

		parsed, err := ParseUnixAuth(body)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), parsed.UID)
		assert.Equal(t, uint32(0), parsed.GID)
		assert.Empty(t, parsed.GIDs)
	})

	t.Run("RejectsExcessiveGroups", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Uint32(12345)
		enc.String("testhost")
		enc.Uint32(1000)
		enc.Uint32(1000)
		enc.Uint32(maxGIDs + 1)

		_, err := ParseUnixAuth(enc.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many gids")
	})

	t.Run("RejectsEmptyBody", func(t *testing.T) {
		_, err := ParseUnixAuth(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("RejectsLongMachineName", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.Uint32(12345)
		enc.Uint32(maxMachineNameLen + 1)

		_, err := ParseUnixAuth(enc.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "machine name too long")
	})
}

func TestUnixAuthString(t *testing.T) {
	auth := &UnixAuth{Stamp: 1, MachineName: "testhost", UID: 1000, GID: 1000, GIDs: []uint32{4, 24}}
	s := auth.String()
	assert.Contains(t, s, "testhost")
	assert.Contains(t, s, "1000")
	assert.Contains(t, s, "[4 24]")
}

func TestNoneAuthEncodesEmptyBody(t *testing.T) {
	enc := xdr.NewEncoder()
	NoneAuth{}.EncodeCred(enc)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, enc.Bytes())
}

func TestAuthFlavorConstants(t *testing.T) {
	assert.Equal(t, uint32(0), AuthNone)
	assert.Equal(t, uint32(1), AuthSys)
	assert.Equal(t, uint32(2), AuthShort)
	assert.Equal(t, uint32(3), AuthDES)
}
