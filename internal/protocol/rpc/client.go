package rpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/bufpool"
)

// DefaultTimeout bounds a call when the context has no deadline.
const DefaultTimeout = 30 * time.Second

const maxReplySize = 4 << 20

// Options configure a Client.
type Options struct {
	// Name labels logs and spans ("nfs", "mount", "portmap").
	Name    string
	Program uint32
	Version uint32

	// Auth is sent with every call. nil means AUTH_NULL.
	Auth *UnixAuth

	// Privileged binds the local end to a port below 1024, which many NFS
	// servers require ("secure" exports). Needs root.
	Privileged bool

	Timeout time.Duration
}

// Client sends calls for one program and version over one connection.
type Client struct {
	opts    Options
	conn    net.Conn
	cred    []byte
	flavor  uint32
	xid     atomic.Uint32
	mu      sync.Mutex
	broken  error // sticky stream error; the connection is unusable
	timeout time.Duration
}

// ErrBroken wraps the stream error that made a client unusable.
var ErrBroken = errors.New("rpc: connection broken")

// Dial connects to addr ("host:port").
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	conn, err := dial(ctx, addr, opts.Privileged)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(conn, opts)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, opts Options) (*Client, error) {
	c := &Client{opts: opts, conn: conn, flavor: AuthNull, timeout: opts.Timeout}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.Auth != nil {
		cred, err := opts.Auth.Encode()
		if err != nil {
			return nil, err
		}
		c.cred, c.flavor = cred, AuthUnix
	}
	c.xid.Store(uint32(time.Now().UnixNano()))
	return c, nil
}

func dial(ctx context.Context, addr string, privileged bool) (net.Conn, error) {
	if !privileged {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	var lastErr error
	for port := 1023; port >= 665; port-- {
		d := net.Dialer{LocalAddr: &net.TCPAddr{Port: port}}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			break
		}
	}
	return nil, fmt.Errorf("dial %s from a privileged port: %w", addr, lastErr)
}

// Call invokes proc with XDR-encoded args and returns the XDR-encoded
// results. procName labels logs and spans.
func (c *Client) Call(ctx context.Context, proc uint32, procName string, args []byte) ([]byte, error) {
	ctx, span := telemetry.StartRPCSpan(ctx, c.opts.Name, c.opts.Program, c.opts.Version, procName)
	defer span.End()

	xid := c.xid.Add(1)
	telemetry.SetAttributes(ctx, telemetry.RPCXID(xid))
	msg := buildCall(xid, c.opts.Program, c.opts.Version, proc, c.flavor, c.cred, args)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroken, c.broken)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	// Unblock the read when ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	if err := writeRecord(c.conn, msg); err != nil {
		c.broken = err
		telemetry.RecordError(ctx, err)
		return nil, c.ctxErr(ctx, fmt.Errorf("write call: %w", err))
	}

	for {
		reply, err := readRecord(c.conn)
		if err != nil {
			c.broken = err
			telemetry.RecordError(ctx, err)
			return nil, c.ctxErr(ctx, fmt.Errorf("read reply: %w", err))
		}
		if len(reply) >= 4 && binary.BigEndian.Uint32(reply[0:4]) != xid {
			// Stale reply to an abandoned call.
			continue
		}
		res, err := parseReply(reply, xid)
		logger.Debug("RPC call",
			logger.Protocol(c.opts.Name),
			logger.Operation(procName),
			logger.RequestID(xid),
			logger.DurationMs(start),
			logger.Err(err))
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		return res, nil
	}
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// Broken reports whether a transport error made the client unusable.
func (c *Client) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken != nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func writeRecord(w io.Writer, msg []byte) error {
	frame := bufpool.Get(4 + len(msg))
	defer bufpool.Put(frame)
	binary.BigEndian.PutUint32(frame[0:4], lastFragment|uint32(len(msg)))
	copy(frame[4:], msg)
	_, err := w.Write(frame)
	return err
}

// readRecord reads fragments until the last one and returns the joined
// message.
func readRecord(r io.Reader) ([]byte, error) {
	var msg []byte
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, err
		}
		v := binary.BigEndian.Uint32(hdr[:])
		n := v &^ lastFragment
		if len(msg)+int(n) > maxReplySize {
			return nil, fmt.Errorf("reply larger than %d bytes", maxReplySize)
		}
		frag := bufpool.Get(int(n))
		if _, err := io.ReadFull(r, frag); err != nil {
			bufpool.Put(frag)
			return nil, err
		}
		msg = append(msg, frag...)
		bufpool.Put(frag)
		if v&lastFragment != 0 {
			return msg, nil
		}
	}
}
