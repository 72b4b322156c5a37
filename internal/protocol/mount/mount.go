// Package mount implements the client side of the MOUNT v3 protocol
// (RFC 1813 Appendix I): listing exports and obtaining the root file
// handle of one.
package mount

import (
	"bytes"
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

const (
	Program = 100005
	Version = 3
)

// Procedure numbers.
const (
	ProcNull    = 0
	ProcMnt     = 1
	ProcDump    = 2
	ProcUmnt    = 3
	ProcUmntAll = 4
	ProcExport  = 5
)

// mountstat3 values.
const (
	OK             = 0
	ErrPerm        = 1
	ErrNoEnt       = 2
	ErrIO          = 5
	ErrAccess      = 13
	ErrNotDir      = 20
	ErrInval       = 22
	ErrNameTooLong = 63
	ErrNotSupp     = 10004
	ErrServerFault = 10006
)

// StatusError is a MNT reply with a status other than OK.
type StatusError struct {
	Status uint32
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mount %s: %s", e.Path, StatusName(e.Status))
}

// IsAccessDenied reports whether the server refused the client.
func (e *StatusError) IsAccessDenied() bool {
	return e.Status == ErrPerm || e.Status == ErrAccess
}

// StatusName returns the symbolic name of a mountstat3 value.
func StatusName(s uint32) string {
	switch s {
	case OK:
		return "MNT3_OK"
	case ErrPerm:
		return "MNT3ERR_PERM"
	case ErrNoEnt:
		return "MNT3ERR_NOENT"
	case ErrIO:
		return "MNT3ERR_IO"
	case ErrAccess:
		return "MNT3ERR_ACCES"
	case ErrNotDir:
		return "MNT3ERR_NOTDIR"
	case ErrInval:
		return "MNT3ERR_INVAL"
	case ErrNameTooLong:
		return "MNT3ERR_NAMETOOLONG"
	case ErrNotSupp:
		return "MNT3ERR_NOTSUPP"
	case ErrServerFault:
		return "MNT3ERR_SERVERFAULT"
	default:
		return fmt.Sprintf("mountstat3(%d)", s)
	}
}

// Export is one entry of the server's export list.
type Export struct {
	Dir    string
	Groups []string
}

// Client talks to a MOUNT server.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the MOUNT server at addr.
func Dial(ctx context.Context, addr string, auth *rpc.UnixAuth, privileged bool) (*Client, error) {
	c, err := rpc.Dial(ctx, addr, rpc.Options{
		Name:       "mount",
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

type dirpath struct {
	Path string
}

// Mnt mounts dir and returns its root file handle and the auth flavors the
// server accepts for it.
func (c *Client) Mnt(ctx context.Context, dir string) ([]byte, []uint32, error) {
	args, err := xdr.Marshal(&dirpath{Path: dir})
	if err != nil {
		return nil, nil, err
	}
	res, err := c.rpc.Call(ctx, ProcMnt, "MNT", args)
	if err != nil {
		return nil, nil, err
	}
	return decodeMntReply(res, dir)
}

func decodeMntReply(res []byte, dir string) ([]byte, []uint32, error) {
	r := bytes.NewReader(res)
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode MNT status: %w", err)
	}
	if status != OK {
		return nil, nil, &StatusError{Status: status, Path: dir}
	}
	fh, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode MNT handle: %w", err)
	}
	n, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decode MNT flavors: %w", err)
	}
	flavors := make([]uint32, 0, n)
	for i := uint32(0); i < n && i < 16; i++ {
		f, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, nil, fmt.Errorf("decode MNT flavors: %w", err)
		}
		flavors = append(flavors, f)
	}
	return fh, flavors, nil
}

// Umnt tells the server the client no longer uses dir.
func (c *Client) Umnt(ctx context.Context, dir string) error {
	args, err := xdr.Marshal(&dirpath{Path: dir})
	if err != nil {
		return err
	}
	_, err = c.rpc.Call(ctx, ProcUmnt, "UMNT", args)
	return err
}

// Exports returns the server's export list.
func (c *Client) Exports(ctx context.Context) ([]Export, error) {
	res, err := c.rpc.Call(ctx, ProcExport, "EXPORT", nil)
	if err != nil {
		return nil, err
	}
	return decodeExports(res)
}

// decodeExports walks the exports linked list: each node is preceded by a
// value-follows boolean, and so is each group name inside a node.
func decodeExports(res []byte) ([]Export, error) {
	r := bytes.NewReader(res)
	var out []Export
	for {
		more, err := xdr.DecodeBool(r)
		if err != nil {
			return nil, fmt.Errorf("decode export list: %w", err)
		}
		if !more {
			return out, nil
		}
		var e Export
		if e.Dir, err = xdr.DecodeString(r); err != nil {
			return nil, fmt.Errorf("decode export dir: %w", err)
		}
		for {
			g, err := xdr.DecodeBool(r)
			if err != nil {
				return nil, fmt.Errorf("decode export groups: %w", err)
			}
			if !g {
				break
			}
			name, err := xdr.DecodeString(r)
			if err != nil {
				return nil, fmt.Errorf("decode export group: %w", err)
			}
			e.Groups = append(e.Groups, name)
		}
		out = append(out, e)
	}
}

// EncodeExports is the inverse of the EXPORT reply decoding, for servers
// and tests.
func EncodeExports(exports []Export) []byte {
	var buf bytes.Buffer
	for _, e := range exports {
		xdr.WriteBool(&buf, true)
		xdr.WriteString(&buf, e.Dir)
		for _, g := range e.Groups {
			xdr.WriteBool(&buf, true)
			xdr.WriteString(&buf, g)
		}
		xdr.WriteBool(&buf, false)
	}
	xdr.WriteBool(&buf, false)
	return buf.Bytes()
}

// EncodeMntReply builds a MNT reply, for servers and tests.
func EncodeMntReply(status uint32, fh []byte, flavors []uint32) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, status)
	if status == OK {
		xdr.WriteOpaque(&buf, fh)
		xdr.WriteUint32(&buf, uint32(len(flavors)))
		for _, f := range flavors {
			xdr.WriteUint32(&buf, f)
		}
	}
	return buf.Bytes()
}
