package nfs

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"

	"github.com/marmos91/dittodrive/internal/protocol/nfs3"
	"github.com/marmos91/dittodrive/pkg/drive/drivetest"
)

// memClient is a Client over a MemFS. Errors mimic what the RPC client
// returns for the same situations.
type memClient struct {
	fs       *drivetest.MemFS
	exports  []string
	chunk    int
	mountErr error
	opErr    error // returned by every operation when set

	mounts atomic.Int32
	closed atomic.Int32
	broken atomic.Bool
}

func newMemClient() *memClient {
	return &memClient{fs: drivetest.NewStandardMemFS(), exports: []string{"/export"}, chunk: 3}
}

func (c *memClient) dialer(calls *atomic.Int32) Dialer {
	return func(context.Context, Config) (Client, error) {
		if calls != nil {
			calls.Add(1)
		}
		return c, nil
	}
}

func statusOf(err error, proc string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return &nfs3.StatusError{Proc: proc, Status: nfs3.ErrNoEnt}
	case errors.Is(err, drivetest.ErrNotEmpty):
		return &nfs3.StatusError{Proc: proc, Status: nfs3.ErrNotEmpty}
	case errors.Is(err, drivetest.ErrIsDir):
		return &nfs3.StatusError{Proc: proc, Status: nfs3.ErrIsDir}
	case errors.Is(err, drivetest.ErrNotDir):
		return &nfs3.StatusError{Proc: proc, Status: nfs3.ErrNotDir}
	default:
		return err
	}
}

func (c *memClient) Mount(context.Context) error {
	c.mounts.Add(1)
	return c.mountErr
}

func (c *memClient) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.opErr != nil {
		return nil, c.opErr
	}
	nodes, err := c.fs.ReadDir(dir)
	if err != nil {
		return nil, statusOf(err, "READDIRPLUS")
	}
	out := make([]FileInfo, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, FileInfo{Name: n.Name(), IsDir: n.Dir, Size: int64(len(n.Data)), ModTime: n.ModTime})
	}
	return out, nil
}

func (c *memClient) Remove(_ context.Context, p string) error {
	if c.opErr != nil {
		return c.opErr
	}
	if n, err := c.fs.Stat(p); err == nil && n.Dir {
		return &nfs3.StatusError{Proc: "REMOVE", Status: nfs3.ErrIsDir}
	}
	return statusOf(c.fs.Remove(p), "REMOVE")
}

func (c *memClient) RemoveAll(_ context.Context, p string) error {
	if c.opErr != nil {
		return c.opErr
	}
	return statusOf(c.fs.RemoveAll(p), "RMDIR")
}

func (c *memClient) Download(ctx context.Context, p string, progress ProgressFunc, done DoneFunc) {
	go func() {
		if c.opErr != nil {
			done(nil, c.opErr)
			return
		}
		data, err := c.fs.ReadFile(p)
		if err != nil {
			done(nil, statusOf(err, "READ"))
			return
		}
		total := int64(len(data))
		var out []byte
		for len(out) < len(data) {
			if err := ctx.Err(); err != nil {
				done(nil, err)
				return
			}
			n := min(c.chunk, len(data)-len(out))
			out = append(out, data[len(out):len(out)+n]...)
			progress(int64(len(out)), total)
		}
		done(out, nil)
	}()
}

func (c *memClient) ListExports(context.Context) ([]string, error) {
	if c.opErr != nil {
		return nil, c.opErr
	}
	return c.exports, nil
}

func (c *memClient) Broken() bool {
	return c.broken.Load()
}

func (c *memClient) Close() error {
	c.closed.Add(1)
	c.broken.Store(false)
	return nil
}
