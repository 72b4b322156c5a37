package nfs3

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

const (
	// readDirCount and readDirMaxCount size READDIRPLUS replies.
	readDirCount    = 8 * 1024
	readDirMaxCount = 32 * 1024

	// maxReadDirPages stops a server that never reports eof.
	maxReadDirPages = 4096
)

// Client issues NFSv3 calls over one RPC connection.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the NFS server at addr.
func Dial(ctx context.Context, addr string, auth *rpc.UnixAuth, privileged bool) (*Client, error) {
	c, err := rpc.Dial(ctx, addr, rpc.Options{
		Name:       "nfs3",
		Program:    Program,
		Version:    Version,
		Auth:       auth,
		Privileged: privileged,
	})
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Broken reports whether the connection can no longer be used.
func (c *Client) Broken() bool {
	return c.rpc.Broken()
}

func (c *Client) call(ctx context.Context, proc uint32, name string, args any) ([]byte, error) {
	body, err := xdr.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", name, err)
	}
	return c.rpc.Call(ctx, proc, name, body)
}

// GetAttr returns the attributes of fh.
func (c *Client) GetAttr(ctx context.Context, fh []byte) (*Attr, error) {
	res, err := c.call(ctx, ProcGetAttr, "GETATTR", &HandleArgs{Handle: fh})
	if err != nil {
		return nil, err
	}
	return DecodeGetAttrReply(res)
}

// Lookup resolves name inside dir.
func (c *Client) Lookup(ctx context.Context, dir []byte, name string) (*LookupResult, error) {
	res, err := c.call(ctx, ProcLookup, "LOOKUP", &DirOpArgs{Dir: dir, Name: name})
	if err != nil {
		return nil, err
	}
	return DecodeLookupReply(res)
}

// Read reads up to count bytes of fh at offset.
func (c *Client) Read(ctx context.Context, fh []byte, offset uint64, count uint32) (*ReadResult, error) {
	res, err := c.call(ctx, ProcRead, "READ", &ReadArgs{Handle: fh, Offset: offset, Count: count})
	if err != nil {
		return nil, err
	}
	return DecodeReadReply(res)
}

// Remove unlinks the non-directory name in dir.
func (c *Client) Remove(ctx context.Context, dir []byte, name string) error {
	res, err := c.call(ctx, ProcRemove, "REMOVE", &DirOpArgs{Dir: dir, Name: name})
	if err != nil {
		return err
	}
	return DecodeWccReply(res, "REMOVE")
}

// Rmdir removes the empty directory name in dir.
func (c *Client) Rmdir(ctx context.Context, dir []byte, name string) error {
	res, err := c.call(ctx, ProcRmdir, "RMDIR", &DirOpArgs{Dir: dir, Name: name})
	if err != nil {
		return err
	}
	return DecodeWccReply(res, "RMDIR")
}

// ReadDirPlus reads one page of dir starting after cookie.
func (c *Client) ReadDirPlus(ctx context.Context, dir []byte, cookie uint64, verf [8]byte) (*ReadDirPlusResult, error) {
	res, err := c.call(ctx, ProcReadDirPlus, "READDIRPLUS", &ReadDirPlusArgs{
		Dir:      dir,
		Cookie:   cookie,
		Verf:     verf,
		DirCount: readDirCount,
		MaxCount: readDirMaxCount,
	})
	if err != nil {
		return nil, err
	}
	return DecodeReadDirPlusReply(res)
}

// ReadDirAll pages through dir and returns every entry except "." and "..".
func (c *Client) ReadDirAll(ctx context.Context, dir []byte) ([]DirEntry, error) {
	var (
		out    []DirEntry
		cookie uint64
		verf   [8]byte
	)
	for page := 0; page < maxReadDirPages; page++ {
		res, err := c.ReadDirPlus(ctx, dir, cookie, verf)
		if err != nil {
			return nil, err
		}
		for _, e := range res.Entries {
			cookie = e.Cookie
			if e.Name == "." || e.Name == ".." {
				continue
			}
			out = append(out, e)
		}
		verf = res.Verf
		if res.EOF {
			return out, nil
		}
		if len(res.Entries) == 0 {
			return nil, fmt.Errorf("nfs3 READDIRPLUS: empty page without eof")
		}
	}
	logger.Warn("READDIRPLUS page limit reached", logger.Entries(len(out)))
	return nil, fmt.Errorf("nfs3 READDIRPLUS: no eof after %d pages", maxReadDirPages)
}
