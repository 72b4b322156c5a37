// Package rpc implements an ONC-RPC (RFC 5531) client over TCP.
//
// A Client owns one connection and serializes calls on it. Messages use
// record marking: each is sent as a single fragment with the last-fragment
// bit set; replies may span several fragments.
package rpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

// Message types and protocol version.
const (
	MsgCall  = 0
	MsgReply = 1

	Version = 2
)

// Reply states.
const (
	MsgAccepted = 0
	MsgDenied   = 1
)

// Accept states.
const (
	Success      = 0
	ProgUnavail  = 1
	ProgMismatch = 2
	ProcUnavail  = 3
	GarbageArgs  = 4
	SystemErr    = 5
)

// Reject states.
const (
	RPCMismatch = 0
	AuthFailed  = 1
)

// Authentication flavors.
const (
	AuthNull = 0
	AuthUnix = 1
)

// Auth states carried by AUTH_ERROR rejections.
const (
	AuthOK           = 0
	AuthBadCred      = 1
	AuthRejectedCred = 2
	AuthBadVerf      = 3
	AuthRejectedVerf = 4
	AuthTooWeak      = 5
)

const lastFragment = 0x80000000

// UnixAuth is an AUTH_UNIX (AUTH_SYS) credential body.
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// Encode returns the XDR form of the credential body.
func (a *UnixAuth) Encode() ([]byte, error) {
	if len(a.MachineName) > 255 {
		return nil, fmt.Errorf("machine name longer than 255 bytes")
	}
	if len(a.GIDs) > 16 {
		return nil, fmt.Errorf("more than 16 supplementary groups")
	}
	return xdr.Marshal(a)
}

func (a *UnixAuth) String() string {
	return fmt.Sprintf("unix{machine=%s uid=%d gid=%d gids=%v}", a.MachineName, a.UID, a.GID, a.GIDs)
}

// AcceptError is an accepted reply whose accept_stat is not SUCCESS.
type AcceptError struct {
	Stat      uint32
	Low, High uint32 // supported versions, PROG_MISMATCH only
}

func (e *AcceptError) Error() string {
	switch e.Stat {
	case ProgUnavail:
		return "rpc: program unavailable"
	case ProgMismatch:
		return fmt.Sprintf("rpc: program version mismatch (server supports %d-%d)", e.Low, e.High)
	case ProcUnavail:
		return "rpc: procedure unavailable"
	case GarbageArgs:
		return "rpc: server could not decode arguments"
	case SystemErr:
		return "rpc: server system error"
	default:
		return fmt.Sprintf("rpc: accept status %d", e.Stat)
	}
}

// AuthError is a call rejected with AUTH_ERROR.
type AuthError struct {
	Stat uint32
}

func (e *AuthError) Error() string {
	switch e.Stat {
	case AuthBadCred:
		return "rpc: bad credentials"
	case AuthRejectedCred:
		return "rpc: credentials rejected"
	case AuthBadVerf:
		return "rpc: bad verifier"
	case AuthRejectedVerf:
		return "rpc: verifier rejected"
	case AuthTooWeak:
		return "rpc: authentication too weak"
	default:
		return fmt.Sprintf("rpc: auth status %d", e.Stat)
	}
}

// MismatchError is a call rejected with RPC_MISMATCH.
type MismatchError struct {
	Low, High uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("rpc: version mismatch (server supports %d-%d)", e.Low, e.High)
}

// buildCall encodes a CALL message body without record marking.
func buildCall(xid, prog, vers, proc uint32, credFlavor uint32, cred []byte, args []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(40 + len(cred) + len(args))
	xdr.WriteUint32(&buf, xid)
	xdr.WriteUint32(&buf, MsgCall)
	xdr.WriteUint32(&buf, Version)
	xdr.WriteUint32(&buf, prog)
	xdr.WriteUint32(&buf, vers)
	xdr.WriteUint32(&buf, proc)
	xdr.WriteUint32(&buf, credFlavor)
	xdr.WriteOpaque(&buf, cred)
	xdr.WriteUint32(&buf, AuthNull) // verifier
	xdr.WriteOpaque(&buf, nil)
	buf.Write(args)
	return buf.Bytes()
}

// parseReply checks a REPLY message for xid and returns the procedure
// results.
func parseReply(msg []byte, xid uint32) ([]byte, error) {
	r := bytes.NewReader(msg)
	got, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	if got != xid {
		return nil, fmt.Errorf("rpc: reply xid %d does not match call %d", got, xid)
	}
	mtype, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	if mtype != MsgReply {
		return nil, fmt.Errorf("rpc: message type %d is not a reply", mtype)
	}
	state, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, err
	}

	switch state {
	case MsgAccepted:
		if _, err := xdr.DecodeUint32(r); err != nil { // verifier flavor
			return nil, err
		}
		if _, err := xdr.DecodeOpaque(r); err != nil {
			return nil, err
		}
		stat, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		if stat == Success {
			return msg[len(msg)-r.Len():], nil
		}
		aerr := &AcceptError{Stat: stat}
		if stat == ProgMismatch {
			aerr.Low, _ = xdr.DecodeUint32(r)
			aerr.High, _ = xdr.DecodeUint32(r)
		}
		return nil, aerr

	case MsgDenied:
		stat, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		if stat == RPCMismatch {
			low, _ := xdr.DecodeUint32(r)
			high, _ := xdr.DecodeUint32(r)
			return nil, &MismatchError{Low: low, High: high}
		}
		astat, _ := xdr.DecodeUint32(r)
		return nil, &AuthError{Stat: astat}

	default:
		return nil, fmt.Errorf("rpc: unknown reply state %d", state)
	}
}
