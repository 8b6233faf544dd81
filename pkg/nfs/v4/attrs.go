package v4

import (
	"sort"

	"github.com/module/nfsclient/pkg/xdr"
)

// Attribute bit numbers, per spec.md's bitmap (the subset of fattr4 this
// client requests and decodes).
const (
	AttrType       = 1
	AttrSize       = 5
	AttrTimeCreate = 18
	AttrTimeAccess = 19
	AttrTimeModify = 22
	AttrMode       = 33
)

func setBit(bitmap *[]uint32, bit uint32) {
	word := bit / 32
	for uint32(len(*bitmap)) <= word {
		*bitmap = append(*bitmap, 0)
	}
	(*bitmap)[word] |= 1 << (bit % 32)
}

func isBitSet(bitmap []uint32, bit uint32) bool {
	word := bit / 32
	if word >= uint32(len(bitmap)) {
		return false
	}
	return bitmap[word]&(1<<(bit%32)) != 0
}

// RequestedAttrBitmap returns the bitmap4 this client sends with every
// GETATTR: TYPE, SIZE, MODE, TIME_ACCESS, TIME_MODIFY, TIME_CREATE.
func RequestedAttrBitmap() []uint32 {
	var bm []uint32
	for _, bit := range []uint32{AttrType, AttrSize, AttrMode, AttrTimeAccess, AttrTimeModify, AttrTimeCreate} {
		setBit(&bm, bit)
	}
	return bm
}

func encodeBitmap(enc *xdr.Encoder, bitmap []uint32) {
	enc.Uint32(uint32(len(bitmap)))
	for _, w := range bitmap {
		enc.Uint32(w)
	}
}

func decodeBitmap(dec *xdr.Decoder) ([]uint32, error) {
	n, err := dec.Uint32()
	if err != nil {
		return nil, err
	}
	bitmap := make([]uint32, n)
	for i := range bitmap {
		if bitmap[i], err = dec.Uint32(); err != nil {
			return nil, err
		}
	}
	return bitmap, nil
}

// decodeFattr4 decodes an fattr4 (attrmask + opaque attr_vals) into the
// fields this client understands, skipping any attribute bit it does
// not recognize. Per RFC 8881 Section 4.4.2, values appear in the
// attr_vals opaque in strictly ascending bit-number order.
func decodeFattr4(dec *xdr.Decoder) (FileAttr4, error) {
	bitmap, err := decodeBitmap(dec)
	if err != nil {
		return FileAttr4{}, err
	}
	raw, err := dec.Opaque()
	if err != nil {
		return FileAttr4{}, err
	}
	vals := xdr.NewDecoder(raw)

	var present []uint32
	for _, bit := range []uint32{AttrType, AttrSize, AttrTimeCreate, AttrTimeAccess, AttrTimeModify, AttrMode} {
		if isBitSet(bitmap, bit) {
			present = append(present, bit)
		}
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })

	var attr FileAttr4
	for _, bit := range present {
		switch bit {
		case AttrType:
			v, err := vals.Uint32()
			if err != nil {
				return FileAttr4{}, err
			}
			attr.Type = FType4(v)
		case AttrSize:
			v, err := vals.Uint64()
			if err != nil {
				return FileAttr4{}, err
			}
			attr.Size = &v
		case AttrTimeCreate:
			t, err := decodeTime4(vals)
			if err != nil {
				return FileAttr4{}, err
			}
			attr.TimeCreate = &t
		case AttrTimeAccess:
			t, err := decodeTime4(vals)
			if err != nil {
				return FileAttr4{}, err
			}
			attr.TimeAccess = &t
		case AttrTimeModify:
			t, err := decodeTime4(vals)
			if err != nil {
				return FileAttr4{}, err
			}
			attr.TimeModify = &t
		case AttrMode:
			v, err := vals.Uint32()
			if err != nil {
				return FileAttr4{}, err
			}
			attr.Mode = &v
		}
	}
	return attr, nil
}

// encodeSizeModeFattr4 encodes a minimal fattr4 carrying only SIZE
// and/or MODE, the only attributes this client ever sets (via SETATTR
// or as OPEN's createattrs).
func encodeSizeModeFattr4(enc *xdr.Encoder, size *uint64, mode *uint32) {
	var bitmap []uint32
	if size != nil {
		setBit(&bitmap, AttrSize)
	}
	if mode != nil {
		setBit(&bitmap, AttrMode)
	}
	encodeBitmap(enc, bitmap)

	vals := xdr.NewEncoder()
	if size != nil {
		vals.Uint64(*size)
	}
	if mode != nil {
		vals.Uint32(*mode)
	}
	enc.Opaque(vals.Bytes())
}
