package smb

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"sync"

	"github.com/hirochachacha/go-smb2"

	"github.com/marmos91/dittodrive/internal/logger"
)

// Session is an authenticated SMB2 session. Paths are relative to the
// mounted share and use "/".
type Session interface {
	ListShares(ctx context.Context) ([]string, error)

	// Mount selects the share later calls operate on. Mounting the share
	// already selected is a no-op.
	Mount(ctx context.Context, share string) error

	ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error)
	Remove(ctx context.Context, p string) error
	RemoveAll(ctx context.Context, p string) error

	// ReadFile reads the whole file. With maxSize > 0 it stops after
	// maxSize+1 bytes so the caller can detect oversized files.
	ReadFile(ctx context.Context, p string, maxSize int64) ([]byte, error)

	Close() error
}

// Dialer creates a Session.
type Dialer func(ctx context.Context, cfg Config) (Session, error)

// smb2Session implements Session on go-smb2.
type smb2Session struct {
	conn    net.Conn
	session *smb2.Session

	mu        sync.Mutex
	share     *smb2.Share
	shareName string
}

// Dial connects to cfg's server and authenticates with NTLM.
func Dial(ctx context.Context, cfg Config) (Session, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", cfg.address())
	if err != nil {
		return nil, err
	}
	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}
	s, err := d.DialContext(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	logger.Debug("SMB session established", logger.Host(cfg.Host), logger.Username(cfg.Username))
	return &smb2Session{conn: conn, session: s}, nil
}

func (s *smb2Session) ListShares(ctx context.Context) ([]string, error) {
	return s.session.WithContext(ctx).ListSharenames()
}

func (s *smb2Session) Mount(ctx context.Context, share string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.share != nil && s.shareName == share {
		return nil
	}
	if s.share != nil {
		_ = s.share.Umount()
		s.share, s.shareName = nil, ""
	}
	sh, err := s.session.WithContext(ctx).Mount(share)
	if err != nil {
		return err
	}
	s.share, s.shareName = sh, share
	return nil
}

func (s *smb2Session) mounted(ctx context.Context) (*smb2.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.share == nil {
		return nil, fmt.Errorf("no share mounted")
	}
	return s.share.WithContext(ctx), nil
}

func (s *smb2Session) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	sh, err := s.mounted(ctx)
	if err != nil {
		return nil, err
	}
	return sh.ReadDir(dir)
}

func (s *smb2Session) Remove(ctx context.Context, p string) error {
	sh, err := s.mounted(ctx)
	if err != nil {
		return err
	}
	return sh.Remove(p)
}

func (s *smb2Session) RemoveAll(ctx context.Context, p string) error {
	sh, err := s.mounted(ctx)
	if err != nil {
		return err
	}
	return sh.RemoveAll(p)
}

func (s *smb2Session) ReadFile(ctx context.Context, p string, maxSize int64) ([]byte, error) {
	sh, err := s.mounted(ctx)
	if err != nil {
		return nil, err
	}
	f, err := sh.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	return io.ReadAll(r)
}

// Close unmounts the share, logs off and closes the connection.
func (s *smb2Session) Close() error {
	s.mu.Lock()
	sh := s.share
	s.share, s.shareName = nil, ""
	s.mu.Unlock()

	if sh != nil {
		_ = sh.Umount()
	}
	err := s.session.Logoff()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
