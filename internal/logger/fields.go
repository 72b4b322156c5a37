package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use them consistently so log lines from the three
// backends can be queried the same way.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	KeyDrive     = "drive"     // configured drive name
	KeyProtocol  = "protocol"  // webdav, smb, nfs
	KeyOperation = "operation" // ping, list, delete, fetch
	KeyHost      = "host"
	KeyShare     = "share"  // SMB share
	KeyExport    = "export" // NFS export
	KeyPath      = "path"
	KeyURL       = "url"
	KeyMethod    = "method" // HTTP method or RPC procedure
	KeyStatus    = "status" // HTTP status, NFS status, SMB status code
	KeyUsername  = "username"

	KeyEntries   = "entries" // number of directory entries
	KeyDropped   = "dropped" // entries dropped while parsing
	KeyIsDir     = "is_dir"
	KeySize      = "size"
	KeyBytesRead = "bytes_read"
	KeyTotal     = "total"

	KeyRequestID  = "request_id" // RPC xid
	KeyAttempt    = "attempt"
	KeyState      = "state" // connector state
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorKind  = "error_kind"
)

func Drive(name string) slog.Attr {
	return slog.String(KeyDrive, name)
}

func Protocol(p string) slog.Attr {
	return slog.String(KeyProtocol, p)
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Host(h string) slog.Attr {
	return slog.String(KeyHost, h)
}

func Share(s string) slog.Attr {
	return slog.String(KeyShare, s)
}

func Export(e string) slog.Attr {
	return slog.String(KeyExport, e)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// URL returns the attribute for a URL. Callers must strip credentials first.
func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

func Username(u string) slog.Attr {
	return slog.String(KeyUsername, u)
}

func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

func Dropped(n int) slog.Attr {
	return slog.Int(KeyDropped, n)
}

func IsDir(dir bool) slog.Attr {
	return slog.Bool(KeyIsDir, dir)
}

func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

func BytesRead(n int64) slog.Attr {
	return slog.Int64(KeyBytesRead, n)
}

func Total(n int64) slog.Attr {
	return slog.Int64(KeyTotal, n)
}

func RequestID(xid uint32) slog.Attr {
	return slog.Any(KeyRequestID, xid)
}

func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// DurationMs returns the elapsed time since start in milliseconds
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns an error attribute; nil errors produce an empty attribute that
// handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}
