package xdr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Scalar Round-trip Tests
// ============================================================================

func TestScalarRoundtrip(t *testing.T) {
	t.Run("Uint32", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(0xdeadbeef)

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xdeadbeef), v)
		assert.Equal(t, 0, dec.Remaining())
	})

	t.Run("Int32Negative", func(t *testing.T) {
		enc := NewEncoder()
		enc.Int32(-42)

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Int32()
		require.NoError(t, err)
		assert.Equal(t, int32(-42), v)
	})

	t.Run("Uint64", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint64(0x0102030405060708)

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Uint64()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x0102030405060708), v)
	})

	t.Run("Int64Negative", func(t *testing.T) {
		enc := NewEncoder()
		enc.Int64(-9223372036854775808)

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Int64()
		require.NoError(t, err)
		assert.Equal(t, int64(-9223372036854775808), v)
	})

	t.Run("BoolTrue", func(t *testing.T) {
		enc := NewEncoder()
		enc.Bool(true)
		assert.Equal(t, []byte{0, 0, 0, 1}, enc.Bytes())

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Bool()
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("BoolFalse", func(t *testing.T) {
		enc := NewEncoder()
		enc.Bool(false)
		assert.Equal(t, []byte{0, 0, 0, 0}, enc.Bytes())

		dec := NewDecoder(enc.Bytes())
		v, err := dec.Bool()
		require.NoError(t, err)
		assert.False(t, v)
	})
}

// ============================================================================
// Opaque and String Tests
// ============================================================================

func TestOpaqueRoundtrip(t *testing.T) {
	t.Run("UnalignedLength", func(t *testing.T) {
		enc := NewEncoder()
		enc.Opaque([]byte{0x01, 0x02, 0x03})

		// length(4) + data(3) + padding(1) = 8 bytes total
		assert.Equal(t, 8, enc.Len())

		dec := NewDecoder(enc.Bytes())
		data, err := dec.Opaque()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
		assert.Equal(t, 0, dec.Remaining())
	})

	t.Run("AlignedLength", func(t *testing.T) {
		enc := NewEncoder()
		enc.Opaque([]byte{0x01, 0x02, 0x03, 0x04})

		// length(4) + data(4) + padding(0) = 8 bytes total
		assert.Equal(t, 8, enc.Len())

		dec := NewDecoder(enc.Bytes())
		data, err := dec.Opaque()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)
	})

	t.Run("Empty", func(t *testing.T) {
		enc := NewEncoder()
		enc.Opaque(nil)

		dec := NewDecoder(enc.Bytes())
		data, err := dec.Opaque()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("ExceedsMaxLength", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(MaxOpaqueLength + 1)

		dec := NewDecoder(enc.Bytes())
		_, err := dec.Opaque()
		require.Error(t, err)

		var cf *CodecFailed
		require.ErrorAs(t, err, &cf)
		assert.Equal(t, "opaque", cf.Field)
	})

	t.Run("TruncatedData", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(10) // claims 10 bytes but none follow

		dec := NewDecoder(enc.Bytes())
		_, err := dec.Opaque()
		require.Error(t, err)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestFixedOpaqueRoundtrip(t *testing.T) {
	handle := []byte{1, 2, 3, 4, 5}

	enc := NewEncoder()
	enc.FixedOpaque(handle)
	// data(5) + padding(3) = 8 bytes, no length prefix
	assert.Equal(t, 8, enc.Len())

	dec := NewDecoder(enc.Bytes())
	got, err := dec.FixedOpaque(5)
	require.NoError(t, err)
	assert.Equal(t, handle, got)
	assert.Equal(t, 0, dec.Remaining())
}

func TestStringRoundtrip(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		enc := NewEncoder()
		enc.String("test")
		// length(4) + "test"(4) + padding(0) = 8 bytes
		assert.Equal(t, 8, enc.Len())

		dec := NewDecoder(enc.Bytes())
		s, err := dec.String()
		require.NoError(t, err)
		assert.Equal(t, "test", s)
	})

	t.Run("RequiresPadding", func(t *testing.T) {
		enc := NewEncoder()
		enc.String("abc")
		assert.Equal(t, 8, enc.Len())

		dec := NewDecoder(enc.Bytes())
		s, err := dec.String()
		require.NoError(t, err)
		assert.Equal(t, "abc", s)
	})
}

// ============================================================================
// Optional Tests
// ============================================================================

func TestOptionalRoundtrip(t *testing.T) {
	t.Run("Present", func(t *testing.T) {
		enc := NewEncoder()
		enc.Optional(true, func() { enc.Uint32(42) })

		dec := NewDecoder(enc.Bytes())
		var v uint32
		present, err := dec.Optional(func() error {
			var decErr error
			v, decErr = dec.Uint32()
			return decErr
		})
		require.NoError(t, err)
		assert.True(t, present)
		assert.Equal(t, uint32(42), v)
	})

	t.Run("Absent", func(t *testing.T) {
		enc := NewEncoder()
		enc.Optional(false, func() { enc.Uint32(42) })
		assert.Equal(t, 4, enc.Len())

		dec := NewDecoder(enc.Bytes())
		called := false
		present, err := dec.Optional(func() error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.False(t, present)
		assert.False(t, called)
	})
}

// ============================================================================
// Union Discriminant Tests
// ============================================================================

func TestUnionDiscriminant(t *testing.T) {
	enc := NewEncoder()
	enc.UnionDiscriminant(3)

	dec := NewDecoder(enc.Bytes())
	disc, err := dec.UnionDiscriminant()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), disc)
}

// ============================================================================
// Array Tests
// ============================================================================

func TestArrayDecode(t *testing.T) {
	t.Run("DecodesAllElements", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(3)
		enc.Uint32(10)
		enc.Uint32(20)
		enc.Uint32(30)

		dec := NewDecoder(enc.Bytes())
		var out []uint32
		n, err := dec.Array(func(i int) error {
			v, err := dec.Uint32()
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []uint32{10, 20, 30}, out)
	})

	t.Run("RejectsCorruptCount", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(1 << 30) // absurd count, far exceeding remaining bytes

		dec := NewDecoder(enc.Bytes())
		_, err := dec.Array(func(i int) error {
			t.Fatal("decode should not be invoked for a corrupt count")
			return nil
		})
		require.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(0)

		dec := NewDecoder(enc.Bytes())
		n, err := dec.Array(func(i int) error {
			t.Fatal("decode should not be invoked for an empty array")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

// ============================================================================
// Decoder Budget Tests
// ============================================================================

func TestDecoderBudget(t *testing.T) {
	t.Run("TracksRemaining", func(t *testing.T) {
		enc := NewEncoder()
		enc.Uint32(1)
		enc.Uint32(2)

		dec := NewDecoder(enc.Bytes())
		assert.Equal(t, 8, dec.Remaining())

		_, err := dec.Uint32()
		require.NoError(t, err)
		assert.Equal(t, 4, dec.Remaining())

		_, err = dec.Uint32()
		require.NoError(t, err)
		assert.Equal(t, 0, dec.Remaining())
	})

	t.Run("ShortReadReturnsCodecFailed", func(t *testing.T) {
		dec := NewDecoder([]byte{0x00, 0x00})
		_, err := dec.Uint32()
		require.Error(t, err)

		var cf *CodecFailed
		require.ErrorAs(t, err, &cf)
		assert.True(t, errors.Is(cf, io.ErrUnexpectedEOF))
	})

	t.Run("EmptyBuffer", func(t *testing.T) {
		dec := NewDecoder(nil)
		assert.Equal(t, 0, dec.Remaining())

		_, err := dec.Uint32()
		require.Error(t, err)
	})
}

// ============================================================================
// CodecFailed Tests
// ============================================================================

func TestCodecFailedWrapping(t *testing.T) {
	cf := fail("handle", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, cf, io.ErrUnexpectedEOF)
	assert.Contains(t, cf.Error(), "handle")
}
