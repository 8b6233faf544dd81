package v3

import (
	"github.com/module/nfsclient/pkg/xdr"
)

// Time is an nfstime3: seconds and nanoseconds since the epoch.
type Time struct {
	Seconds  uint32
	Nseconds uint32
}

func decodeTime(dec *xdr.Decoder) (Time, error) {
	s, err := dec.Uint32()
	if err != nil {
		return Time{}, err
	}
	ns, err := dec.Uint32()
	if err != nil {
		return Time{}, err
	}
	return Time{Seconds: s, Nseconds: ns}, nil
}

func encodeTime(enc *xdr.Encoder, t Time) {
	enc.Uint32(t.Seconds)
	enc.Uint32(t.Nseconds)
}

// Specdata is the device-number pair for block/character special files.
type Specdata struct {
	Specdata1 uint32
	Specdata2 uint32
}

// Attr is an fattr3: the full set of object attributes NFSv3 returns
// from GETATTR and as post_op_attr on every other procedure.
//
// Field order and names mirror the teacher's internal/protocol/nfs.FileAttr,
// itself a verbatim transcription of RFC 1813's fattr3.
type Attr struct {
	Type   FType3
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   Specdata
	Fsid   uint64
	Fileid uint64
	Atime  Time
	Mtime  Time
	Ctime  Time
}

func decodeAttr(dec *xdr.Decoder) (Attr, error) {
	var a Attr
	typ, err := dec.Uint32()
	if err != nil {
		return Attr{}, err
	}
	a.Type = FType3(typ)

	if a.Mode, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.Nlink, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.UID, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.GID, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.Size, err = dec.Uint64(); err != nil {
		return Attr{}, err
	}
	if a.Used, err = dec.Uint64(); err != nil {
		return Attr{}, err
	}
	if a.Rdev.Specdata1, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.Rdev.Specdata2, err = dec.Uint32(); err != nil {
		return Attr{}, err
	}
	if a.Fsid, err = dec.Uint64(); err != nil {
		return Attr{}, err
	}
	if a.Fileid, err = dec.Uint64(); err != nil {
		return Attr{}, err
	}
	if a.Atime, err = decodeTime(dec); err != nil {
		return Attr{}, err
	}
	if a.Mtime, err = decodeTime(dec); err != nil {
		return Attr{}, err
	}
	if a.Ctime, err = decodeTime(dec); err != nil {
		return Attr{}, err
	}
	return a, nil
}

func encodeAttr(enc *xdr.Encoder, a Attr) {
	enc.Uint32(uint32(a.Type))
	enc.Uint32(a.Mode)
	enc.Uint32(a.Nlink)
	enc.Uint32(a.UID)
	enc.Uint32(a.GID)
	enc.Uint64(a.Size)
	enc.Uint64(a.Used)
	enc.Uint32(a.Rdev.Specdata1)
	enc.Uint32(a.Rdev.Specdata2)
	enc.Uint64(a.Fsid)
	enc.Uint64(a.Fileid)
	encodeTime(enc, a.Atime)
	encodeTime(enc, a.Mtime)
	encodeTime(enc, a.Ctime)
}

func decodePostOpAttr(dec *xdr.Decoder) (*Attr, error) {
	var attr *Attr
	_, err := dec.Optional(func() error {
		a, err := decodeAttr(dec)
		if err != nil {
			return err
		}
		attr = &a
		return nil
	})
	return attr, err
}

// WccAttr is a wcc_attr: the minimal pre-operation state used to detect
// whether another client modified an object concurrently.
type WccAttr struct {
	Size  uint64
	Mtime Time
	Ctime Time
}

func decodeWccAttr(dec *xdr.Decoder) (WccAttr, error) {
	var w WccAttr
	size, err := dec.Uint64()
	if err != nil {
		return WccAttr{}, err
	}
	w.Size = size
	if w.Mtime, err = decodeTime(dec); err != nil {
		return WccAttr{}, err
	}
	if w.Ctime, err = decodeTime(dec); err != nil {
		return WccAttr{}, err
	}
	return w, nil
}

// WccData is a wcc_data: the weak-cache-consistency pair attached to
// every mutating reply, win or lose, so the caller can tell whether its
// view of the object's directory entry or attributes went stale.
type WccData struct {
	Before *WccAttr
	After  *Attr
}

func decodeWccData(dec *xdr.Decoder) (WccData, error) {
	var wcc WccData
	_, err := dec.Optional(func() error {
		w, err := decodeWccAttr(dec)
		if err != nil {
			return err
		}
		wcc.Before = &w
		return nil
	})
	if err != nil {
		return WccData{}, err
	}
	wcc.After, err = decodePostOpAttr(dec)
	if err != nil {
		return WccData{}, err
	}
	return wcc, nil
}

// SetTimeMode is a set_time's discriminant: whether to leave the time
// alone, set it to the server's clock, or set it to a client-supplied
// value.
type SetTimeMode uint32

const (
	DontChange      SetTimeMode = 0
	SetToServerTime SetTimeMode = 1
	SetToClientTime SetTimeMode = 2
)

// Sattr is an sattr3: the subset of attributes SETATTR and CREATE/MKDIR
// may set, each individually optional.
type Sattr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *Time // only meaningful when AtimeMode == SetToClientTime
	Mtime *Time // only meaningful when MtimeMode == SetToClientTime

	AtimeMode SetTimeMode
	MtimeMode SetTimeMode
}

func encodeSattr(enc *xdr.Encoder, s Sattr) {
	enc.Optional(s.Mode != nil, func() { enc.Uint32(*s.Mode) })
	enc.Optional(s.UID != nil, func() { enc.Uint32(*s.UID) })
	enc.Optional(s.GID != nil, func() { enc.Uint32(*s.GID) })
	enc.Optional(s.Size != nil, func() { enc.Uint64(*s.Size) })

	enc.Uint32(uint32(s.AtimeMode))
	if s.AtimeMode == SetToClientTime {
		t := Time{}
		if s.Atime != nil {
			t = *s.Atime
		}
		encodeTime(enc, t)
	}

	enc.Uint32(uint32(s.MtimeMode))
	if s.MtimeMode == SetToClientTime {
		t := Time{}
		if s.Mtime != nil {
			t = *s.Mtime
		}
		encodeTime(enc, t)
	}
}

// Guard is an sattrguard3: an optional ctime check SETATTR uses to
// reject the update if another client changed the object in the
// meantime (a compare-and-swap on ctime).
type Guard struct {
	Check bool
	Time  Time
}

func encodeGuard(enc *xdr.Encoder, g Guard) {
	enc.Optional(g.Check, func() { encodeTime(enc, g.Time) })
}

// FSInfo is the subset of FSINFO's reply this client consults for
// block-size negotiation.
type FSInfo struct {
	Rtmax   uint32
	Rtpref  uint32
	Wtmax   uint32
	Wtpref  uint32
	Dtpref  uint32
	MaxFileSize uint64
	TimeDelta   Time
	Properties  uint32
}

// PathConf is PATHCONF's reply: POSIX pathconf-style limits for an
// object's filesystem.
type PathConf struct {
	LinkMax        uint32
	NameMax        uint32
	NoTrunc        bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// DirEntry is one entry from READDIR.
type DirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
}

// DirEntryPlus is one entry from READDIRPLUS: a DirEntry enriched with
// attributes and, when the server chooses to include it, a handle —
// sparing the caller a follow-up LOOKUP for each entry.
type DirEntryPlus struct {
	FileID  uint64
	Name    string
	Cookie  uint64
	Attr    *Attr
	Handle  []byte
}
