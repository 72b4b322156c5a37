package drive

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/dittodrive/internal/logger"
)

// ConnectState is the lifecycle state of a Connector.
type ConnectState int

const (
	StateUnconnected ConnectState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s ConnectState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Connector lazily creates a session and shares it between callers.
//
// Concurrent first use joins a single dial. A failed dial leaves the
// connector in StateFailed and the next Get dials again. Reset discards a
// session that turned out to be broken.
type Connector[T any] struct {
	name  string
	dial  func(ctx context.Context) (T, error)
	close func(T) error

	group singleflight.Group

	mu      sync.Mutex
	state   ConnectState
	session T
	lastErr error
}

// NewConnector creates a connector. closeFn may be nil.
func NewConnector[T any](name string, dial func(ctx context.Context) (T, error), closeFn func(T) error) *Connector[T] {
	return &Connector[T]{name: name, dial: dial, close: closeFn}
}

// Get returns the session, dialing it if needed. The dial is detached
// from ctx cancellation so that one caller giving up does not fail the
// others waiting on the same dial; Get itself returns as soon as ctx is
// done.
func (c *Connector[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.state == StateConnected {
		s := c.session
		c.mu.Unlock()
		return s, nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	ch := c.group.DoChan(c.name, func() (any, error) {
		c.mu.Lock()
		if c.state == StateConnected {
			s := c.session
			c.mu.Unlock()
			return s, nil
		}
		c.mu.Unlock()

		logger.Debug("Connecting", logger.Drive(c.name))
		s, err := c.dial(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = StateFailed
			c.lastErr = err
			logger.Debug("Connect failed", logger.Drive(c.name), logger.Err(err))
			return nil, err
		}
		c.state = StateConnected
		c.session = s
		c.lastErr = nil
		return s, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		s, _ := res.Val.(T)
		return s, nil
	}
}

// State returns the current state.
func (c *Connector[T]) State() ConnectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error of the last failed dial.
func (c *Connector[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Reset closes the current session, if any, and returns the connector to
// StateUnconnected.
func (c *Connector[T]) Reset() error {
	c.mu.Lock()
	connected := c.state == StateConnected
	s := c.session
	var zero T
	c.session = zero
	c.state = StateUnconnected
	c.mu.Unlock()

	if connected && c.close != nil {
		return c.close(s)
	}
	return nil
}

// Close is Reset under the io.Closer name.
func (c *Connector[T]) Close() error {
	return c.Reset()
}
