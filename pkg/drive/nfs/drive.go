// Package nfs implements drive.Drive over NFSv3.
//
// A Drive is bound to one export. The client is created and the export
// mounted on first use; a transport failure drops the session and the
// next operation mounts again.
package nfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/protocol/mount"
	"github.com/marmos91/dittodrive/internal/protocol/nfs3"
	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/pkg/drive"
)

const (
	opMount   = "mount"
	opList    = "list"
	opDelete  = "delete"
	opFetch   = "fetch"
	opExports = "exports"
)

var errTooLarge = errors.New("content exceeds fetch size limit")

// Drive is an NFS drive.
type Drive struct {
	cfg    Config
	root   string
	dialer Dialer
	conn   *drive.Connector[Client]
}

// Option configures a Drive.
type Option func(*Drive)

// WithDialer replaces the client factory.
func WithDialer(fn Dialer) Option {
	return func(d *Drive) {
		d.dialer = fn
	}
}

// New validates cfg and creates a drive. No connection is made.
func New(cfg Config, opts ...Option) (*Drive, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	d := &Drive{cfg: cfg, dialer: Dial}
	d.root = resourceURL(cfg, "")
	for _, opt := range opts {
		opt(d)
	}
	d.conn = drive.NewConnector(d.root, d.connect, func(c Client) error { return c.Close() })
	return d, nil
}

func (d *Drive) connect(ctx context.Context) (Client, error) {
	if d.cfg.Export == "" {
		return nil, drive.NewInvalidConfigError("nfs export is empty", nil)
	}
	c, err := d.dialer(ctx, d.cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Mount(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// client returns the mounted client, remounting when an abandoned call
// left the previous one unusable.
func (d *Drive) client(ctx context.Context) (Client, error) {
	c, err := d.conn.Get(ctx)
	if err == nil && c.Broken() {
		logger.Debug("NFS session broken, remounting", logger.Host(d.cfg.Host), logger.Export(d.cfg.Export))
		d.reset()
		c, err = d.conn.Get(ctx)
	}
	if err != nil {
		return nil, d.classify(opMount, "", err)
	}
	return c, nil
}

// Protocol implements drive.Drive.
func (d *Drive) Protocol() drive.Protocol {
	return drive.ProtocolNFS
}

// Export returns the normalized export path.
func (d *Drive) Export() string {
	return d.cfg.Export
}

// Ping mounts the export if needed and lists its root.
func (d *Drive) Ping(ctx context.Context) bool {
	if _, err := d.ListFiles(ctx, ""); err != nil {
		logger.Debug("NFS ping failed", logger.Host(d.cfg.Host), logger.Export(d.cfg.Export), logger.Err(err))
		return false
	}
	return true
}

// ListFiles lists the children of dir.
func (d *Drive) ListFiles(ctx context.Context, dir string) ([]drive.FileEntry, error) {
	p := drive.CleanPath(dir)
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}
	infos, err := c.ReadDir(ctx, p)
	if err != nil {
		return nil, d.classify(opList, p, err)
	}

	entries := make([]drive.FileEntry, 0, len(infos))
	for _, fi := range infos {
		if fi.Name == "" || fi.Name == "." || fi.Name == ".." {
			continue
		}
		ep := drive.JoinPath(p, fi.Name)
		entries = append(entries, drive.FileEntry{
			Path:           ep,
			Identity:       drive.NewIdentity(drive.ProtocolNFS, d.root, ep),
			IsDirectory:    fi.IsDir,
			LastModified:   fi.ModTime,
			SizeBytes:      fi.Size,
			ResourceURL:    resourceURL(d.cfg, ep),
			SourceProtocol: drive.ProtocolNFS,
		})
	}
	logger.Debug("NFS READDIRPLUS", logger.Export(d.cfg.Export), logger.Path(p), logger.Entries(len(entries)))
	return entries, nil
}

// DeleteFile removes a file, or a directory and everything below it.
func (d *Drive) DeleteFile(ctx context.Context, entry drive.FileEntry) (bool, error) {
	p := drive.CleanPath(entry.Path)
	if p == "" {
		return false, &drive.Error{Kind: drive.KindInvalidConfig, Op: opDelete, Message: "refusing to delete the drive root"}
	}
	c, err := d.client(ctx)
	if err != nil {
		return false, err
	}
	if entry.IsDirectory {
		err = c.RemoveAll(ctx, p)
	} else {
		err = c.Remove(ctx, p)
	}
	if err == nil {
		return true, nil
	}
	err = d.classify(opDelete, p, err)
	if errors.Is(err, drive.ErrRejected) {
		logger.Debug("NFS delete rejected", logger.Path(p), logger.Err(err))
		return false, nil
	}
	return false, err
}

type download struct {
	data []byte
	err  error
}

// FetchBytes downloads a file, bridging the client's progress and
// completion callbacks into one result.
func (d *Drive) FetchBytes(ctx context.Context, entry drive.FileEntry) ([]byte, error) {
	p := drive.CleanPath(entry.Path)
	if entry.IsDirectory {
		return nil, &drive.Error{Kind: drive.KindInvalidConfig, Op: opFetch, Path: p, Message: "cannot fetch a directory"}
	}
	limit := d.cfg.MaxFetchSize
	if limit > 0 && entry.SizeBytes > limit {
		return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
	}
	c, err := d.client(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	result := make(chan download, 1)
	c.Download(ctx, p,
		func(read, total int64) {
			logger.Debug("NFS read progress", logger.Path(p), logger.BytesRead(read), logger.Total(total))
			if limit > 0 && read > limit {
				cancel(errTooLarge)
			}
		},
		func(data []byte, err error) {
			result <- download{data: data, err: err}
		})

	select {
	case res := <-result:
		if res.err != nil {
			if errors.Is(context.Cause(ctx), errTooLarge) {
				return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
			}
			return nil, d.classify(opFetch, p, res.err)
		}
		if limit > 0 && int64(len(res.data)) > limit {
			return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
		}
		return res.data, nil
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), errTooLarge) {
			return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
		}
		return nil, drive.NewProtocolError(opFetch, p, ctx.Err())
	}
}

// ResourceURL returns nfs://host[:port]/export/path.
func (d *Drive) ResourceURL(entry drive.FileEntry) (string, error) {
	return resourceURL(d.cfg, drive.CleanPath(entry.Path)), nil
}

// ListExports asks the server for its export list. It does not need
// Export to be set.
func (d *Drive) ListExports(ctx context.Context) ([]string, error) {
	c, err := d.dialer(ctx, d.cfg)
	if err != nil {
		return nil, d.classify(opExports, "", err)
	}
	defer func() { _ = c.Close() }()
	exports, err := c.ListExports(ctx)
	if err != nil {
		return nil, d.classify(opExports, "", err)
	}
	return exports, nil
}

// Close unmounts the export.
func (d *Drive) Close() error {
	return d.conn.Close()
}

// classify maps client errors onto the drive taxonomy. Anything that is
// neither a reply from the server nor the caller's cancellation drops the
// session.
func (d *Drive) classify(op, p string, err error) error {
	var de *drive.Error
	if errors.As(err, &de) {
		return drive.WithOp(err, op, p)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return drive.NewProtocolError(op, p, err)
	}
	if errors.Is(err, errNoExport) {
		return &drive.Error{Kind: drive.KindInvalidConfig, Op: op, Path: p, Message: "nfs export is empty", Err: err}
	}

	var (
		nfsErr   *nfs3.StatusError
		mntErr   *mount.StatusError
		authErr  *rpc.AuthError
		denied   bool
		rejected bool
	)
	switch {
	case errors.As(err, &nfsErr):
		denied, rejected = nfsErr.IsAccessDenied(), true
	case errors.As(err, &mntErr):
		denied, rejected = mntErr.IsAccessDenied(), true
	case errors.As(err, &authErr):
		denied = true
	}

	switch {
	case denied:
		logger.Info("NFS access denied", logger.Operation(op), logger.Path(p), logger.Err(err))
		return drive.NewAuthError(op, p, err)
	case rejected:
		return drive.NewProtocolError(op, p, fmt.Errorf("%w: %w", drive.ErrRejected, err))
	}

	d.reset()
	logger.Info("NFS operation failed", logger.Operation(op), logger.Path(p), logger.Err(err))
	return drive.NewProtocolError(op, p, err)
}

func (d *Drive) reset() {
	if err := d.conn.Reset(); err != nil {
		logger.Debug("NFS session close failed", logger.Err(err))
	}
}

var (
	_ drive.Drive        = (*Drive)(nil)
	_ drive.ExportLister = (*Drive)(nil)
	_ drive.Closer       = (*Drive)(nil)
)
