package drive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure a Drive reports. ErrorKind implements
// error so kinds can be used directly as errors.Is targets:
//
//	if errors.Is(err, drive.KindAuth) { ... }
type ErrorKind int

const (
	// KindInvalidConfig: malformed host, credentials or path detected
	// before any network call.
	KindInvalidConfig ErrorKind = iota + 1

	// KindAuth: the server rejected the credentials.
	KindAuth

	// KindProtocol: transport failure, or a non-success reply not
	// otherwise classified.
	KindProtocol

	// KindInsufficientStorage: the server is out of capacity (WebDAV 507).
	KindInsufficientStorage

	// KindParse: a well-formed reply that cannot be decoded into entries.
	KindParse
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidConfig:
		return "InvalidConfig"
	case KindAuth:
		return "Auth"
	case KindProtocol:
		return "Protocol"
	case KindInsufficientStorage:
		return "InsufficientStorage"
	case KindParse:
		return "Parse"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Error implements the error interface.
func (k ErrorKind) Error() string {
	return k.String()
}

// Sentinels for errors.Is matching, one per kind.
var (
	ErrInvalidConfig       error = KindInvalidConfig
	ErrAuth                error = KindAuth
	ErrProtocol            error = KindProtocol
	ErrInsufficientStorage error = KindInsufficientStorage
	ErrParse               error = KindParse
)

// ErrRejected marks a well-formed negative reply from a server (an SMB or
// NFS status other than success). Backends use it internally; DeleteFile
// converts it to a false result.
var ErrRejected = errors.New("request rejected by server")

// Error is the error type returned by every Drive operation.
type Error struct {
	Kind    ErrorKind
	Op      string // list, delete, fetch, connect, ...
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the kind of err, or 0 if err is not a drive error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// NewInvalidConfigError creates an InvalidConfig error.
func NewInvalidConfigError(message string, cause error) *Error {
	return &Error{Kind: KindInvalidConfig, Message: message, Err: cause}
}

// NewAuthError creates an Auth error.
func NewAuthError(op, path string, cause error) *Error {
	return &Error{Kind: KindAuth, Op: op, Path: path, Message: "credentials rejected", Err: cause}
}

// NewProtocolError creates a Protocol error wrapping cause.
func NewProtocolError(op, path string, cause error) *Error {
	return &Error{Kind: KindProtocol, Op: op, Path: path, Err: cause}
}

// NewInsufficientStorageError creates an InsufficientStorage error.
func NewInsufficientStorageError(op, path string) *Error {
	return &Error{Kind: KindInsufficientStorage, Op: op, Path: path, Message: "insufficient storage on server"}
}

// NewParseError creates a Parse error.
func NewParseError(op, path string, cause error) *Error {
	return &Error{Kind: KindParse, Op: op, Path: path, Message: "cannot decode response", Err: cause}
}

// WithOp returns err with Op and Path filled in when err is a drive error
// that has none. Other errors are wrapped as Protocol errors.
func WithOp(err error, op, path string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.Op != "" {
			return err
		}
		clone := *de
		clone.Op, clone.Path = op, path
		return &clone
	}
	return NewProtocolError(op, path, err)
}
