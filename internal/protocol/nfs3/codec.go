package nfs3

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

// Arguments are fixed-shape and go through xdr.Marshal.

// HandleArgs carries a single file handle (GETATTR3args).
type HandleArgs struct {
	Handle []byte
}

// DirOpArgs is diropargs3 (LOOKUP, REMOVE, RMDIR).
type DirOpArgs struct {
	Dir  []byte
	Name string
}

// ReadArgs is READ3args.
type ReadArgs struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

// ReadDirPlusArgs is READDIRPLUS3args.
type ReadDirPlusArgs struct {
	Dir      []byte
	Cookie   uint64
	Verf     [8]byte
	DirCount uint32
	MaxCount uint32
}

// Results carry discriminated unions and optional values, decoded by hand.

// LookupResult is the OK arm of LOOKUP3res.
type LookupResult struct {
	Handle  []byte
	Attr    *Attr
	DirAttr *Attr
}

// ReadResult is the OK arm of READ3res.
type ReadResult struct {
	Attr  *Attr
	Count uint32
	EOF   bool
	Data  []byte
}

// ReadDirPlusResult is the OK arm of READDIRPLUS3res.
type ReadDirPlusResult struct {
	DirAttr *Attr
	Verf    [8]byte
	Entries []DirEntry
	EOF     bool
}

func decodeAttr(r io.Reader) (*Attr, error) {
	var a Attr
	if err := xdr.Unmarshal(r, &a); err != nil {
		return nil, fmt.Errorf("decode fattr3: %w", err)
	}
	return &a, nil
}

func encodeAttr(buf *bytes.Buffer, a *Attr) {
	xdr.WriteUint32(buf, uint32(a.Type))
	xdr.WriteUint32(buf, a.Mode)
	xdr.WriteUint32(buf, a.Nlink)
	xdr.WriteUint32(buf, a.UID)
	xdr.WriteUint32(buf, a.GID)
	xdr.WriteUint64(buf, a.Size)
	xdr.WriteUint64(buf, a.Used)
	xdr.WriteUint32(buf, a.SpecData1)
	xdr.WriteUint32(buf, a.SpecData2)
	xdr.WriteUint64(buf, a.FSID)
	xdr.WriteUint64(buf, a.FileID)
	for _, t := range []Time{a.Atime, a.Mtime, a.Ctime} {
		xdr.WriteUint32(buf, t.Seconds)
		xdr.WriteUint32(buf, t.Nseconds)
	}
}

// post_op_attr
func decodePostOpAttr(r io.Reader) (*Attr, error) {
	follows, err := xdr.DecodeBool(r)
	if err != nil || !follows {
		return nil, err
	}
	return decodeAttr(r)
}

func encodePostOpAttr(buf *bytes.Buffer, a *Attr) {
	xdr.WriteBool(buf, a != nil)
	if a != nil {
		encodeAttr(buf, a)
	}
}

func decodeHandle(r io.Reader) ([]byte, error) {
	fh, err := xdr.DecodeOpaque(r)
	if err != nil {
		return nil, fmt.Errorf("decode nfs_fh3: %w", err)
	}
	if len(fh) > MaxHandleSize {
		return nil, fmt.Errorf("nfs_fh3 length %d exceeds %d", len(fh), MaxHandleSize)
	}
	return fh, nil
}

// decodeStatus reads the leading nfsstat3 and turns failures into a
// *StatusError.
func decodeStatus(r io.Reader, proc string) error {
	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode %s status: %w", proc, err)
	}
	if status != OK {
		return &StatusError{Proc: proc, Status: status}
	}
	return nil
}

// DecodeGetAttrReply decodes GETATTR3res.
func DecodeGetAttrReply(res []byte) (*Attr, error) {
	r := bytes.NewReader(res)
	if err := decodeStatus(r, "GETATTR"); err != nil {
		return nil, err
	}
	return decodeAttr(r)
}

// DecodeLookupReply decodes LOOKUP3res.
func DecodeLookupReply(res []byte) (*LookupResult, error) {
	r := bytes.NewReader(res)
	if err := decodeStatus(r, "LOOKUP"); err != nil {
		return nil, err
	}
	var out LookupResult
	var err error
	if out.Handle, err = decodeHandle(r); err != nil {
		return nil, err
	}
	if out.Attr, err = decodePostOpAttr(r); err != nil {
		return nil, err
	}
	if out.DirAttr, err = decodePostOpAttr(r); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeReadReply decodes READ3res.
func DecodeReadReply(res []byte) (*ReadResult, error) {
	r := bytes.NewReader(res)
	if err := decodeStatus(r, "READ"); err != nil {
		return nil, err
	}
	var out ReadResult
	var err error
	if out.Attr, err = decodePostOpAttr(r); err != nil {
		return nil, err
	}
	if out.Count, err = xdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("decode READ count: %w", err)
	}
	if out.EOF, err = xdr.DecodeBool(r); err != nil {
		return nil, fmt.Errorf("decode READ eof: %w", err)
	}
	if out.Data, err = xdr.DecodeOpaque(r); err != nil {
		return nil, fmt.Errorf("decode READ data: %w", err)
	}
	return &out, nil
}

// DecodeWccReply decodes the status of REMOVE3res and RMDIR3res. The
// weak cache consistency data that follows is ignored.
func DecodeWccReply(res []byte, proc string) error {
	return decodeStatus(bytes.NewReader(res), proc)
}

// DecodeReadDirPlusReply decodes READDIRPLUS3res.
func DecodeReadDirPlusReply(res []byte) (*ReadDirPlusResult, error) {
	r := bytes.NewReader(res)
	if err := decodeStatus(r, "READDIRPLUS"); err != nil {
		return nil, err
	}
	var out ReadDirPlusResult
	var err error
	if out.DirAttr, err = decodePostOpAttr(r); err != nil {
		return nil, err
	}
	if err := xdr.DecodeFixed(r, out.Verf[:]); err != nil {
		return nil, fmt.Errorf("decode cookieverf: %w", err)
	}
	for {
		more, err := xdr.DecodeBool(r)
		if err != nil {
			return nil, fmt.Errorf("decode entry list: %w", err)
		}
		if !more {
			break
		}
		e, err := decodeEntryPlus(r)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, *e)
	}
	if out.EOF, err = xdr.DecodeBool(r); err != nil {
		return nil, fmt.Errorf("decode eof: %w", err)
	}
	return &out, nil
}

func decodeEntryPlus(r io.Reader) (*DirEntry, error) {
	var e DirEntry
	var err error
	if e.FileID, err = xdr.DecodeUint64(r); err != nil {
		return nil, fmt.Errorf("decode entry fileid: %w", err)
	}
	if e.Name, err = xdr.DecodeString(r); err != nil {
		return nil, fmt.Errorf("decode entry name: %w", err)
	}
	if e.Cookie, err = xdr.DecodeUint64(r); err != nil {
		return nil, fmt.Errorf("decode entry cookie: %w", err)
	}
	if e.Attr, err = decodePostOpAttr(r); err != nil {
		return nil, err
	}
	// post_op_fh3
	follows, err := xdr.DecodeBool(r)
	if err != nil {
		return nil, fmt.Errorf("decode entry handle: %w", err)
	}
	if follows {
		if e.Handle, err = decodeHandle(r); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// Reply encoders are the server side of the decoders above.

// EncodeStatus encodes a failed reply carrying only the status and, where
// the procedure has one, an absent post_op_attr.
func EncodeStatus(status uint32, withAttr bool) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, status)
	if withAttr {
		xdr.WriteBool(&buf, false)
	}
	return buf.Bytes()
}

// EncodeGetAttrReply encodes a successful GETATTR3res.
func EncodeGetAttrReply(a *Attr) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, OK)
	encodeAttr(&buf, a)
	return buf.Bytes()
}

// EncodeLookupReply encodes a successful LOOKUP3res.
func EncodeLookupReply(res *LookupResult) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, OK)
	xdr.WriteOpaque(&buf, res.Handle)
	encodePostOpAttr(&buf, res.Attr)
	encodePostOpAttr(&buf, res.DirAttr)
	return buf.Bytes()
}

// EncodeReadReply encodes a successful READ3res.
func EncodeReadReply(res *ReadResult) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, OK)
	encodePostOpAttr(&buf, res.Attr)
	xdr.WriteUint32(&buf, res.Count)
	xdr.WriteBool(&buf, res.EOF)
	xdr.WriteOpaque(&buf, res.Data)
	return buf.Bytes()
}

// EncodeWccReply encodes REMOVE3res or RMDIR3res with empty wcc_data.
func EncodeWccReply(status uint32) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, status)
	xdr.WriteBool(&buf, false) // pre_op_attr
	xdr.WriteBool(&buf, false) // post_op_attr
	return buf.Bytes()
}

// EncodeReadDirPlusReply encodes a successful READDIRPLUS3res.
func EncodeReadDirPlusReply(res *ReadDirPlusResult) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, OK)
	encodePostOpAttr(&buf, res.DirAttr)
	buf.Write(res.Verf[:])
	for i := range res.Entries {
		e := &res.Entries[i]
		xdr.WriteBool(&buf, true)
		xdr.WriteUint64(&buf, e.FileID)
		xdr.WriteString(&buf, e.Name)
		xdr.WriteUint64(&buf, e.Cookie)
		encodePostOpAttr(&buf, e.Attr)
		xdr.WriteBool(&buf, e.Handle != nil)
		if e.Handle != nil {
			xdr.WriteOpaque(&buf, e.Handle)
		}
	}
	xdr.WriteBool(&buf, false)
	xdr.WriteBool(&buf, res.EOF)
	return buf.Bytes()
}
