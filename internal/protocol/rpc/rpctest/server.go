// Package rpctest runs in-process ONC-RPC servers for tests.
package rpctest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

// Call is a decoded CALL message.
type Call struct {
	XID        uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	CredFlavor uint32
	Cred       []byte
	Args       []byte
	LocalPort  int // client source port
}

// UnixAuth decodes the AUTH_UNIX credential, or returns nil.
func (c Call) UnixAuth() *rpc.UnixAuth {
	if c.CredFlavor != rpc.AuthUnix {
		return nil
	}
	var a rpc.UnixAuth
	if err := xdr.Unmarshal(bytes.NewReader(c.Cred), &a); err != nil {
		return nil
	}
	return &a
}

// Reply is what a Handler answers. The zero value is an accepted SUCCESS
// with empty results.
type Reply struct {
	Results    []byte
	AcceptStat uint32
	AuthStat   uint32 // non-zero denies the call with AUTH_ERROR
}

// Handler answers one call.
type Handler func(Call) Reply

// Server accepts TCP connections and answers record-marked calls.
type Server struct {
	ln      net.Listener
	handler Handler
	wg      sync.WaitGroup

	mu    sync.Mutex
	calls []Call
	conns []net.Conn
}

// Start listens on a loopback port and stops when the test ends.
func Start(t testing.TB, h Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{ln: ln, handler: h}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr returns "host:port".
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Calls returns the calls received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Close stops the listener and open connections.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	port := conn.RemoteAddr().(*net.TCPAddr).Port
	for {
		msg, err := ReadRecord(conn)
		if err != nil {
			return
		}
		call, err := ParseCall(msg)
		if err != nil {
			return
		}
		call.LocalPort = port
		s.mu.Lock()
		s.calls = append(s.calls, *call)
		s.mu.Unlock()

		if err := WriteRecord(conn, EncodeReply(call.XID, s.handler(*call))); err != nil {
			return
		}
	}
}

// ParseCall decodes a CALL message body.
func ParseCall(msg []byte) (*Call, error) {
	r := bytes.NewReader(msg)
	var hdr [6]uint32
	for i := range hdr {
		v, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		hdr[i] = v
	}
	if hdr[1] != rpc.MsgCall || hdr[2] != rpc.Version {
		return nil, errors.New("not an RPC v2 call")
	}
	c := &Call{XID: hdr[0], Program: hdr[3], Version: hdr[4], Procedure: hdr[5]}

	var err error
	if c.CredFlavor, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if c.Cred, err = xdr.DecodeOpaque(r); err != nil {
		return nil, err
	}
	if _, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if _, err = xdr.DecodeOpaque(r); err != nil {
		return nil, err
	}
	c.Args = msg[len(msg)-r.Len():]
	return c, nil
}

// EncodeReply builds a REPLY message body.
func EncodeReply(xid uint32, rep Reply) []byte {
	var buf bytes.Buffer
	xdr.WriteUint32(&buf, xid)
	xdr.WriteUint32(&buf, rpc.MsgReply)
	if rep.AuthStat != 0 {
		xdr.WriteUint32(&buf, rpc.MsgDenied)
		xdr.WriteUint32(&buf, rpc.AuthFailed)
		xdr.WriteUint32(&buf, rep.AuthStat)
		return buf.Bytes()
	}
	xdr.WriteUint32(&buf, rpc.MsgAccepted)
	xdr.WriteUint32(&buf, rpc.AuthNull)
	xdr.WriteOpaque(&buf, nil)
	xdr.WriteUint32(&buf, rep.AcceptStat)
	if rep.AcceptStat == rpc.ProgMismatch {
		xdr.WriteUint32(&buf, 3)
		xdr.WriteUint32(&buf, 3)
	}
	buf.Write(rep.Results)
	return buf.Bytes()
}

// WriteRecord sends msg as one last fragment.
func WriteRecord(w io.Writer, msg []byte) error {
	frame := make([]byte, 4+len(msg))
	binary.BigEndian.PutUint32(frame[0:4], 0x80000000|uint32(len(msg)))
	copy(frame[4:], msg)
	_, err := w.Write(frame)
	return err
}

// ReadRecord reads one record, joining fragments.
func ReadRecord(r io.Reader) ([]byte, error) {
	var msg []byte
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}
		v := binary.BigEndian.Uint32(hdr[:])
		frag := make([]byte, v&0x7FFFFFFF)
		if _, err := io.ReadFull(r, frag); err != nil {
			return nil, err
		}
		msg = append(msg, frag...)
		if v&0x80000000 != 0 {
			return msg, nil
		}
	}
}
