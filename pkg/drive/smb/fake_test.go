package smb

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/marmos91/dittodrive/pkg/drive/drivetest"
)

const (
	statusObjectNameNotFound = 0xC0000034
	statusFileIsADirectory   = 0xC00000BA
	statusBadNetworkName     = 0xC00000CC
	statusDirectoryNotEmpty  = 0xC0000101
)

type memInfo struct {
	n drivetest.Node
}

func (i memInfo) Name() string       { return i.n.Name() }
func (i memInfo) Size() int64        { return int64(len(i.n.Data)) }
func (i memInfo) ModTime() time.Time { return i.n.ModTime }
func (i memInfo) IsDir() bool        { return i.n.Dir }
func (i memInfo) Sys() any           { return nil }
func (i memInfo) Mode() fs.FileMode {
	if i.n.Dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

// memSession is a Session over one MemFS per share.
type memSession struct {
	shares map[string]*drivetest.MemFS
	dialErr error
	opErr   error

	mu      sync.Mutex
	current string

	dials  atomic.Int32
	mounts atomic.Int32
	closed atomic.Int32
}

func newMemSession() *memSession {
	return &memSession{shares: map[string]*drivetest.MemFS{
		"media":  drivetest.NewStandardMemFS(),
		"IPC$":   drivetest.NewMemFS(),
		"ADMIN$": drivetest.NewMemFS(),
	}}
}

func (s *memSession) dialer() Dialer {
	return func(context.Context, Config) (Session, error) {
		s.dials.Add(1)
		if s.dialErr != nil {
			return nil, s.dialErr
		}
		return s, nil
	}
}

func statusOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return &fs.PathError{Op: "open", Err: &smb2.ResponseError{Code: statusObjectNameNotFound}}
	case errors.Is(err, drivetest.ErrNotEmpty):
		return &smb2.ResponseError{Code: statusDirectoryNotEmpty}
	case errors.Is(err, drivetest.ErrIsDir):
		return &smb2.ResponseError{Code: statusFileIsADirectory}
	default:
		return err
	}
}

func (s *memSession) fs() *drivetest.MemFS {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shares[s.current]
}

func (s *memSession) ListShares(context.Context) ([]string, error) {
	if s.opErr != nil {
		return nil, s.opErr
	}
	return []string{"ADMIN$", "IPC$", "media"}, nil
}

func (s *memSession) Mount(_ context.Context, share string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == share {
		return nil
	}
	if _, ok := s.shares[share]; !ok {
		return &smb2.ResponseError{Code: statusBadNetworkName}
	}
	s.mounts.Add(1)
	s.current = share
	return nil
}

func (s *memSession) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.opErr != nil {
		return nil, s.opErr
	}
	nodes, err := s.fs().ReadDir(dir)
	if err != nil {
		return nil, statusOf(err)
	}
	out := make([]fs.FileInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, memInfo{n: n})
	}
	return out, nil
}

func (s *memSession) Remove(_ context.Context, p string) error {
	if s.opErr != nil {
		return s.opErr
	}
	return statusOf(s.fs().Remove(p))
}

func (s *memSession) RemoveAll(_ context.Context, p string) error {
	if s.opErr != nil {
		return s.opErr
	}
	return statusOf(s.fs().RemoveAll(p))
}

func (s *memSession) ReadFile(ctx context.Context, p string, maxSize int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.opErr != nil {
		return nil, s.opErr
	}
	data, err := s.fs().ReadFile(p)
	if err != nil {
		return nil, statusOf(err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize+1 {
		data = data[:maxSize+1]
	}
	return data, nil
}

func (s *memSession) Close() error {
	s.closed.Add(1)
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
	return nil
}

