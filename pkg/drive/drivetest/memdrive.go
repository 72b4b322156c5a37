package drivetest

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// MemDrive is a drive.Drive over a MemFS, for tests of code that consumes
// drives (the registry, the browse API, the CLI).
type MemDrive struct {
	FS    *MemFS
	Proto drive.Protocol

	mu      sync.Mutex
	err     error
	closed  bool
	maxSize int64
}

// NewMemDrive returns a drive holding StandardTree.
func NewMemDrive(p drive.Protocol) *MemDrive {
	return &MemDrive{FS: NewStandardMemFS(), Proto: p}
}

// Fail makes every following operation return err. nil restores normal
// behavior.
func (d *MemDrive) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// SetMaxFetchSize caps FetchBytes like the real backends do.
func (d *MemDrive) SetMaxFetchSize(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxSize = n
}

// Closed reports whether Close was called.
func (d *MemDrive) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *MemDrive) failure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *MemDrive) Protocol() drive.Protocol { return d.Proto }

func (d *MemDrive) Ping(ctx context.Context) bool {
	return ctx.Err() == nil && d.failure() == nil
}

func (d *MemDrive) ListFiles(ctx context.Context, dir string) ([]drive.FileEntry, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	dir = drive.CleanPath(dir)
	nodes, err := d.FS.ReadDir(dir)
	if err != nil {
		return nil, d.mapErr("list", dir, err)
	}

	entries := make([]drive.FileEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, d.entry(n))
	}
	return entries, nil
}

func (d *MemDrive) entry(n Node) drive.FileEntry {
	size := int64(len(n.Data))
	if n.Dir {
		size = 0
	}
	e := drive.FileEntry{
		Path:           n.Path,
		Identity:       drive.NewIdentity(d.Proto, "mem", n.Path),
		IsDirectory:    n.Dir,
		LastModified:   n.ModTime,
		SizeBytes:      size,
		SourceProtocol: d.Proto,
	}
	e.ResourceURL, _ = d.ResourceURL(e)
	return e
}

func (d *MemDrive) DeleteFile(ctx context.Context, entry drive.FileEntry) (bool, error) {
	if err := d.check(ctx); err != nil {
		return false, err
	}
	p := drive.CleanPath(entry.Path)
	if p == "" {
		return false, drive.NewInvalidConfigError("refusing to delete the drive root", nil)
	}
	if err := d.FS.RemoveAll(p); err != nil {
		return false, nil
	}
	return true, nil
}

func (d *MemDrive) FetchBytes(ctx context.Context, entry drive.FileEntry) ([]byte, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	p := drive.CleanPath(entry.Path)
	data, err := d.FS.ReadFile(p)
	if err != nil {
		return nil, d.mapErr("fetch", p, err)
	}
	d.mu.Lock()
	limit := d.maxSize
	d.mu.Unlock()
	if limit > 0 && int64(len(data)) > limit {
		return nil, drive.NewInvalidConfigError("file exceeds the fetch size limit", nil)
	}
	return data, nil
}

func (d *MemDrive) ResourceURL(entry drive.FileEntry) (string, error) {
	return "mem://" + d.Proto.String() + "/" + drive.CleanPath(entry.Path), nil
}

// Close implements drive.Closer.
func (d *MemDrive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *MemDrive) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return drive.NewProtocolError("", "", err)
	}
	return d.failure()
}

func (d *MemDrive) mapErr(op, p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return drive.NewProtocolError(op, p, err)
	case errors.Is(err, ErrIsDir):
		return drive.NewInvalidConfigError(p+" is a directory", err)
	default:
		return drive.NewProtocolError(op, p, err)
	}
}
