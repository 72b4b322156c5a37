// Package nfs3 implements the client side of the NFS version 3 protocol
// (RFC 1813) for the procedures a browsing client needs: GETATTR, LOOKUP,
// READ, REMOVE, RMDIR and READDIRPLUS.
package nfs3

import (
	"fmt"
	"time"
)

const (
	Program = 100003
	Version = 3

	// Port is the IANA-assigned NFS port.
	Port = 2049

	// MaxHandleSize is NFS3_FHSIZE.
	MaxHandleSize = 64
)

// Procedure numbers.
const (
	ProcNull        = 0
	ProcGetAttr     = 1
	ProcLookup      = 3
	ProcRead        = 6
	ProcRemove      = 12
	ProcRmdir       = 13
	ProcReadDirPlus = 17
)

// nfsstat3 values.
const (
	OK             = 0
	ErrPerm        = 1
	ErrNoEnt       = 2
	ErrIO          = 5
	ErrNXIO        = 6
	ErrAccess      = 13
	ErrExist       = 17
	ErrXDev        = 18
	ErrNoDev       = 19
	ErrNotDir      = 20
	ErrIsDir       = 21
	ErrInval       = 22
	ErrFBig        = 27
	ErrNoSpc       = 28
	ErrROFS        = 30
	ErrMLink       = 31
	ErrNameTooLong = 63
	ErrNotEmpty    = 66
	ErrDQuot       = 69
	ErrStale       = 70
	ErrRemote      = 71
	ErrBadHandle   = 10001
	ErrNotSync     = 10002
	ErrBadCookie   = 10003
	ErrNotSupp     = 10004
	ErrTooSmall    = 10005
	ErrServerFault = 10006
	ErrBadType     = 10007
	ErrJukebox     = 10008
)

var statusNames = map[uint32]string{
	OK:             "NFS3_OK",
	ErrPerm:        "NFS3ERR_PERM",
	ErrNoEnt:       "NFS3ERR_NOENT",
	ErrIO:          "NFS3ERR_IO",
	ErrNXIO:        "NFS3ERR_NXIO",
	ErrAccess:      "NFS3ERR_ACCES",
	ErrExist:       "NFS3ERR_EXIST",
	ErrXDev:        "NFS3ERR_XDEV",
	ErrNoDev:       "NFS3ERR_NODEV",
	ErrNotDir:      "NFS3ERR_NOTDIR",
	ErrIsDir:       "NFS3ERR_ISDIR",
	ErrInval:       "NFS3ERR_INVAL",
	ErrFBig:        "NFS3ERR_FBIG",
	ErrNoSpc:       "NFS3ERR_NOSPC",
	ErrROFS:        "NFS3ERR_ROFS",
	ErrMLink:       "NFS3ERR_MLINK",
	ErrNameTooLong: "NFS3ERR_NAMETOOLONG",
	ErrNotEmpty:    "NFS3ERR_NOTEMPTY",
	ErrDQuot:       "NFS3ERR_DQUOT",
	ErrStale:       "NFS3ERR_STALE",
	ErrRemote:      "NFS3ERR_REMOTE",
	ErrBadHandle:   "NFS3ERR_BADHANDLE",
	ErrNotSync:     "NFS3ERR_NOT_SYNC",
	ErrBadCookie:   "NFS3ERR_BAD_COOKIE",
	ErrNotSupp:     "NFS3ERR_NOTSUPP",
	ErrTooSmall:    "NFS3ERR_TOOSMALL",
	ErrServerFault: "NFS3ERR_SERVERFAULT",
	ErrBadType:     "NFS3ERR_BADTYPE",
	ErrJukebox:     "NFS3ERR_JUKEBOX",
}

// StatusName returns the symbolic name of an nfsstat3 value.
func StatusName(s uint32) string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("nfsstat3(%d)", s)
}

// StatusError is a reply whose nfsstat3 is not NFS3_OK.
type StatusError struct {
	Proc   string
	Status uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nfs3 %s: %s", e.Proc, StatusName(e.Status))
}

// IsAccessDenied reports whether the server refused the caller's
// credentials for the object.
func (e *StatusError) IsAccessDenied() bool {
	return e.Status == ErrPerm || e.Status == ErrAccess
}

// IsNotFound reports whether the object does not exist.
func (e *StatusError) IsNotFound() bool {
	return e.Status == ErrNoEnt || e.Status == ErrStale
}

// FileType is ftype3.
type FileType uint32

const (
	TypeReg  FileType = 1
	TypeDir  FileType = 2
	TypeBlk  FileType = 3
	TypeChr  FileType = 4
	TypeLnk  FileType = 5
	TypeSock FileType = 6
	TypeFifo FileType = 7
)

// Time is nfstime3.
type Time struct {
	Seconds  uint32
	Nseconds uint32
}

// NewTime converts t, truncating to the 32-bit seconds range.
func NewTime(t time.Time) Time {
	return Time{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

// Time returns the timestamp in UTC.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Seconds), int64(t.Nseconds)).UTC()
}

// Attr is fattr3. Field order is the wire order.
type Attr struct {
	Type      FileType
	Mode      uint32
	Nlink     uint32
	UID       uint32
	GID       uint32
	Size      uint64
	Used      uint64
	SpecData1 uint32
	SpecData2 uint32
	FSID      uint64
	FileID    uint64
	Atime     Time
	Mtime     Time
	Ctime     Time
}

// IsDir reports whether the object is a directory.
func (a *Attr) IsDir() bool {
	return a.Type == TypeDir
}

// DirEntry is one entryplus3 of a READDIRPLUS reply. Attr and Handle are
// nil when the server omitted them.
type DirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
	Attr   *Attr
	Handle []byte
}
