package v4

import "context"

// openOwnerName is the fixed literal suffix spec.md assigns to every
// OPEN owner: { client_id, bytes("nfsclient") }.
const openOwnerName = "nfsclient"

// Client is a convenience wrapper over Engine implementing spec.md's
// named common compounds (lookup, read dir, rename, remove, read
// file, write file, setattr size, symlink, hard link, readlink) so
// callers never have to hand-assemble a CompoundBuilder for everyday
// file operations.
type Client struct {
	engine *Engine
}

// NewClient wraps an already-established (StateOperating) Engine.
func NewClient(engine *Engine) *Client { return &Client{engine: engine} }

// Engine returns the underlying protocol engine, for callers needing a
// custom compound CompoundBuilder doesn't name.
func (c *Client) Engine() *Engine { return c.engine }

func (c *Client) ownerID() []byte { return []byte(openOwnerName) }

// Lookup resolves name under parent, returning its handle and
// attributes ("Lookup path component" compound).
func (c *Client) Lookup(ctx context.Context, parent []byte, name string) (*LookupPathComponentResult, error) {
	var out LookupPathComponentResult
	b := c.engine.NewBuilder("lookup")
	b.LookupPathComponent(parent, name, &out)
	if err := c.engine.Execute(ctx, b); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadDir lists dir's entries starting after cookie, using verifier
// from a prior call (the zero value on the first call). Callers should
// iterate until the result's EOF is true, carrying the verifier
// forward each time, per spec.md's READDIR paging rule.
func (c *Client) ReadDir(ctx context.Context, dir []byte, cookie uint64, verifier [verifierSize]byte, dircount, maxcount uint32) (*ReadDirResult4, error) {
	var out ReadDirResult4
	var granted uint32
	b := c.engine.NewBuilder("readdir")
	b.ReadDirCompound(dir, AccessRead, &granted, cookie, verifier, dircount, maxcount, &out)
	if err := c.engine.Execute(ctx, b); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccessRead requests ACCESS4_READ, the only bit this client's ReadDir
// compound needs to confirm before listing.
const AccessRead = 0x0001

// Rename moves oldName (under srcDir) to newName (under dstDir).
func (c *Client) Rename(ctx context.Context, srcDir []byte, oldName string, dstDir []byte, newName string) error {
	b := c.engine.NewBuilder("rename")
	b.MoveFile(srcDir, oldName, dstDir, newName)
	return c.engine.Execute(ctx, b)
}

// Remove unlinks name from dir.
func (c *Client) Remove(ctx context.Context, dir []byte, name string) error {
	b := c.engine.NewBuilder("remove")
	b.PutFH(dir)
	b.Remove(name)
	return c.engine.Execute(ctx, b)
}

// ReadFileResult is the outcome of ReadFile.
type ReadFileResult struct {
	Data []byte
	EOF  bool
}

// ReadFile opens name under parent for reading and reads count bytes at
// offset, closing the open before returning ("Read file" compound:
// SEQUENCE, PUTFH(parent), OPEN(read), GETFH, then SEQUENCE,
// PUTFH(file), READ, CLOSE).
func (c *Client) ReadFile(ctx context.Context, parent []byte, name string, offset uint64, count uint32) (*ReadFileResult, error) {
	b := c.engine.NewBuilder("read_file_open")
	b.PutFH(parent)
	var open OpenResult4
	b.Open(c.engine.ClientID(), c.ownerID(), 0, name, ShareAccessRead, ShareDenyNone, false, Unchecked4, nil, nil, &open)
	var fh []byte
	b.GetFH(&fh)
	if err := c.engine.Execute(ctx, b); err != nil {
		return nil, err
	}

	b2 := c.engine.NewBuilder("read_file")
	b2.PutFH(fh)
	var read ReadResult4
	b2.Read(open.StateID, offset, count, &read)
	var closed StateID
	b2.Close(0, open.StateID, &closed)
	if err := c.engine.Execute(ctx, b2); err != nil {
		return nil, err
	}
	return &ReadFileResult{Data: read.Data, EOF: read.EOF}, nil
}

// WriteFileResult is the outcome of WriteFile.
type WriteFileResult struct {
	Count     uint32
	Committed uint32
}

// WriteFile opens name under parent for writing (creating it,
// UNCHECKED4, if absent) and writes data at offset, closing the open
// before returning ("Write file" compound).
func (c *Client) WriteFile(ctx context.Context, parent []byte, name string, offset uint64, data []byte, stable uint32, createMode *uint32) (*WriteFileResult, error) {
	b := c.engine.NewBuilder("write_file_open")
	b.PutFH(parent)
	var open OpenResult4
	b.Open(c.engine.ClientID(), c.ownerID(), 0, name, ShareAccessWrite, ShareDenyNone, true, Unchecked4, nil, createMode, &open)
	var fh []byte
	b.GetFH(&fh)
	if err := c.engine.Execute(ctx, b); err != nil {
		return nil, err
	}

	b2 := c.engine.NewBuilder("write_file")
	b2.PutFH(fh)
	var write WriteResult4
	b2.Write(open.StateID, offset, data, stable, &write)
	var closed StateID
	b2.Close(0, open.StateID, &closed)
	if err := c.engine.Execute(ctx, b2); err != nil {
		return nil, err
	}
	return &WriteFileResult{Count: write.Count, Committed: write.Committed}, nil
}

// SetattrSize truncates (or extends) name under parent to size,
// following spec.md's Open Question decision to always pair OPEN with
// CLOSE in this compound ("Setattr size" compound: SEQUENCE,
// PUTFH(parent), OPEN(write), GETFH, SEQUENCE, PUTFH(file),
// SETATTR(stateid, size), CLOSE).
func (c *Client) SetattrSize(ctx context.Context, parent []byte, name string, size uint64) error {
	b := c.engine.NewBuilder("setattr_size_open")
	b.PutFH(parent)
	var open OpenResult4
	b.Open(c.engine.ClientID(), c.ownerID(), 0, name, ShareAccessWrite, ShareDenyNone, false, Unchecked4, nil, nil, &open)
	var fh []byte
	b.GetFH(&fh)
	if err := c.engine.Execute(ctx, b); err != nil {
		return err
	}

	b2 := c.engine.NewBuilder("setattr_size")
	b2.PutFH(fh)
	b2.SetAttrSize(open.StateID, size)
	var closed StateID
	b2.Close(0, open.StateID, &closed)
	return c.engine.Execute(ctx, b2)
}

// Symlink creates a symbolic link named name under parent, pointing at
// target, with the given mode ("Symlink" compound).
func (c *Client) Symlink(ctx context.Context, parent []byte, name, target string, mode uint32) error {
	b := c.engine.NewBuilder("symlink")
	b.PutFH(parent)
	b.Create(TypeLnk, target, name, nil, &mode)
	return c.engine.Execute(ctx, b)
}

// HardLink creates a hard link named newName under parentDir, pointing
// at the object named by target ("Hard link" compound: SEQUENCE,
// PUTFH(target), SAVEFH, PUTFH(parent), LINK(name)).
func (c *Client) HardLink(ctx context.Context, target []byte, parentDir []byte, newName string) error {
	b := c.engine.NewBuilder("hard_link")
	b.PutFH(target)
	b.SaveFH()
	b.PutFH(parentDir)
	b.Link(newName)
	return c.engine.Execute(ctx, b)
}

// Readlink returns the target of the symbolic link named by fh
// ("Readlink" compound: SEQUENCE, PUTFH(link), READLINK).
func (c *Client) Readlink(ctx context.Context, fh []byte) (string, error) {
	b := c.engine.NewBuilder("readlink")
	b.PutFH(fh)
	var target string
	b.Readlink(&target)
	if err := c.engine.Execute(ctx, b); err != nil {
		return "", err
	}
	return target, nil
}

// GetAttr fetches the known attribute subset for fh.
func (c *Client) GetAttr(ctx context.Context, fh []byte) (FileAttr4, error) {
	b := c.engine.NewBuilder("getattr")
	b.PutFH(fh)
	var attr FileAttr4
	b.GetAttr(&attr)
	if err := c.engine.Execute(ctx, b); err != nil {
		return FileAttr4{}, err
	}
	return attr, nil
}

// CreateDirectory creates a directory named name under parent with the
// given mode.
func (c *Client) CreateDirectory(ctx context.Context, parent []byte, name string, mode uint32) error {
	b := c.engine.NewBuilder("mkdir")
	b.PutFH(parent)
	b.Create(TypeDir, "", name, nil, &mode)
	return c.engine.Execute(ctx, b)
}
