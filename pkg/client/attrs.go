package client

import (
	v3 "github.com/module/nfsclient/pkg/nfs/v3"
	v4 "github.com/module/nfsclient/pkg/nfs/v4"
)

// ObjectType is the version-neutral classification of a filesystem
// object, per spec.md §3's NFSAttributes record.
type ObjectType int

const (
	TypeRegular ObjectType = iota
	TypeDirectory
	TypeSymlink
	TypeOther
)

// Permission is an sattr-style mode split into three 3-bit octal
// fields, each in 0..=7.
type Permission struct {
	User  uint8
	Group uint8
	Other uint8
}

// Mode packs Permission into the canonical (user<<6)|(group<<3)|other
// integer.
func (p Permission) Mode() uint32 {
	return uint32(p.User&7)<<6 | uint32(p.Group&7)<<3 | uint32(p.Other&7)
}

// permissionFromMode unpacks a POSIX mode's low nine bits into a
// Permission triple.
func permissionFromMode(mode uint32) Permission {
	return Permission{
		User:  uint8((mode >> 6) & 7),
		Group: uint8((mode >> 3) & 7),
		Other: uint8(mode & 7),
	}
}

// Attributes is the version-neutral NFSAttributes record spec.md §3
// describes: type, permission triple, size, the three timestamps, and
// the handle they were resolved against.
type Attributes struct {
	Type         ObjectType
	Permission   Permission
	Size         uint64
	CreatedAt    int64
	AccessedAt   int64
	ModifiedAt   int64
	Handle       []byte
}

func attributesFromV3(fh []byte, a v3.Attr) Attributes {
	typ := TypeOther
	switch a.Type {
	case v3.TypeReg:
		typ = TypeRegular
	case v3.TypeDir:
		typ = TypeDirectory
	case v3.TypeLnk:
		typ = TypeSymlink
	}
	return Attributes{
		Type:       typ,
		Permission: permissionFromMode(a.Mode),
		Size:       a.Size,
		CreatedAt:  int64(a.Ctime.Seconds),
		AccessedAt: int64(a.Atime.Seconds),
		ModifiedAt: int64(a.Mtime.Seconds),
		Handle:     fh,
	}
}

func attributesFromV4(fh []byte, a v4.FileAttr4) Attributes {
	typ := TypeOther
	switch a.Type {
	case v4.TypeReg:
		typ = TypeRegular
	case v4.TypeDir:
		typ = TypeDirectory
	case v4.TypeLnk:
		typ = TypeSymlink
	}
	attrs := Attributes{Type: typ, Handle: fh}
	if a.Mode != nil {
		attrs.Permission = permissionFromMode(*a.Mode)
	}
	if a.Size != nil {
		attrs.Size = *a.Size
	}
	if a.TimeCreate != nil {
		attrs.CreatedAt = a.TimeCreate.Seconds
	}
	if a.TimeAccess != nil {
		attrs.AccessedAt = a.TimeAccess.Seconds
	}
	if a.TimeModify != nil {
		attrs.ModifiedAt = a.TimeModify.Seconds
	}
	return attrs
}
