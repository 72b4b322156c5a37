package nfs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/protocol/mount"
	"github.com/marmos91/dittodrive/internal/protocol/nfs3"
	"github.com/marmos91/dittodrive/internal/protocol/portmap"
	"github.com/marmos91/dittodrive/internal/protocol/rpc"
)

// readChunk is the READ size used by Download.
const readChunk = 64 * 1024

// FileInfo describes one directory entry as the client reports it.
type FileInfo struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// ProgressFunc receives the bytes read so far and the file size.
type ProgressFunc func(read, total int64)

// DoneFunc receives the downloaded content or the error that ended the
// download. It is called exactly once.
type DoneFunc func(data []byte, err error)

// Client is an NFS client bound to one export. Paths are relative to the
// export root.
type Client interface {
	// Mount attaches the export. Calling it again is a no-op.
	Mount(ctx context.Context) error

	ReadDir(ctx context.Context, dir string) ([]FileInfo, error)

	// Remove deletes a file.
	Remove(ctx context.Context, p string) error

	// RemoveAll deletes a file or a directory tree.
	RemoveAll(ctx context.Context, p string) error

	// Download reads p in the background, reporting progress, and calls
	// done when finished.
	Download(ctx context.Context, p string, progress ProgressFunc, done DoneFunc)

	// ListExports does not need a mounted export.
	ListExports(ctx context.Context) ([]string, error)

	// Broken reports whether a transport failure left the client unusable.
	Broken() bool

	Close() error
}

// Dialer creates an unmounted Client.
type Dialer func(ctx context.Context, cfg Config) (Client, error)

// rpcClient implements Client over MOUNT v3 and NFSv3.
type rpcClient struct {
	cfg  Config
	auth *rpc.UnixAuth

	mu   sync.Mutex
	mnt  *mount.Client
	nfs  *nfs3.Client
	root []byte
}

// Dial creates a client for cfg. Connections are made by Mount and
// ListExports.
func Dial(_ context.Context, cfg Config) (Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &rpcClient{
		cfg:  cfg,
		auth: &rpc.UnixAuth{Stamp: uint32(time.Now().Unix()), MachineName: cfg.MachineName, UID: cfg.UID, GID: cfg.GID, GIDs: []uint32{cfg.GID}},
	}, nil
}

func (c *rpcClient) serviceAddr(ctx context.Context, port int, prog, vers uint32) (string, error) {
	if port != 0 {
		return net.JoinHostPort(c.cfg.Host, strconv.Itoa(port)), nil
	}
	return portmap.Resolve(ctx, c.cfg.Host, c.cfg.PortmapPort, prog, vers)
}

func (c *rpcClient) dialMount(ctx context.Context) (*mount.Client, error) {
	addr, err := c.serviceAddr(ctx, c.cfg.MountPort, mount.Program, mount.Version)
	if err != nil {
		return nil, err
	}
	return mount.Dial(ctx, addr, c.auth, c.cfg.Privileged)
}

func (c *rpcClient) Mount(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nfs != nil {
		return nil
	}
	if c.cfg.Export == "" {
		return errNoExport
	}

	mc, err := c.dialMount(ctx)
	if err != nil {
		return err
	}
	fh, flavors, err := mc.Mnt(ctx, c.cfg.Export)
	if err != nil {
		_ = mc.Close()
		return err
	}
	if !acceptsUnix(flavors) {
		_ = mc.Close()
		return fmt.Errorf("export %s does not accept AUTH_UNIX (flavors %v)", c.cfg.Export, flavors)
	}

	addr, err := c.serviceAddr(ctx, c.cfg.Port, nfs3.Program, nfs3.Version)
	if err != nil {
		_ = mc.Close()
		return err
	}
	nc, err := nfs3.Dial(ctx, addr, c.auth, c.cfg.Privileged)
	if err != nil {
		_ = mc.Close()
		return err
	}

	c.mnt, c.nfs, c.root = mc, nc, fh
	logger.Debug("NFS export mounted",
		logger.Host(c.cfg.Host),
		logger.Export(c.cfg.Export),
		logger.URL(addr))
	return nil
}

func (c *rpcClient) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.nfs != nil && c.nfs.Broken()) || (c.mnt != nil && c.mnt.Broken())
}

var errNoExport = errors.New("no export configured")

// acceptsUnix reports whether the MNT flavor list allows AUTH_UNIX. An
// empty list is read as "anything".
func acceptsUnix(flavors []uint32) bool {
	if len(flavors) == 0 {
		return true
	}
	for _, f := range flavors {
		if f == rpc.AuthUnix || f == rpc.AuthNull {
			return true
		}
	}
	return false
}

func (c *rpcClient) session() (*nfs3.Client, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nfs == nil {
		return nil, nil, errors.New("export not mounted")
	}
	return c.nfs, c.root, nil
}

// resolve walks p from the export root with LOOKUP.
func (c *rpcClient) resolve(ctx context.Context, p string) ([]byte, *nfs3.Attr, error) {
	nc, fh, err := c.session()
	if err != nil {
		return nil, nil, err
	}
	var attr *nfs3.Attr
	for _, name := range splitPath(p) {
		res, err := nc.Lookup(ctx, fh, name)
		if err != nil {
			return nil, nil, err
		}
		fh, attr = res.Handle, res.Attr
	}
	if attr == nil {
		if attr, err = nc.GetAttr(ctx, fh); err != nil {
			return nil, nil, err
		}
	}
	return fh, attr, nil
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (c *rpcClient) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	fh, attr, err := c.resolve(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !attr.IsDir() {
		return nil, &nfs3.StatusError{Proc: "READDIRPLUS", Status: nfs3.ErrNotDir}
	}
	nc, _, err := c.session()
	if err != nil {
		return nil, err
	}
	entries, err := nc.ReadDirAll(ctx, fh)
	if err != nil {
		return nil, err
	}

	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		a := e.Attr
		if a == nil {
			// Some servers leave attributes out under memory pressure.
			res, err := nc.Lookup(ctx, fh, e.Name)
			if err != nil {
				return nil, err
			}
			if a = res.Attr; a == nil {
				if a, err = nc.GetAttr(ctx, res.Handle); err != nil {
					return nil, err
				}
			}
		}
		out = append(out, FileInfo{
			Name:    e.Name,
			IsDir:   a.IsDir(),
			Size:    int64(a.Size),
			ModTime: a.Mtime.Time(),
		})
	}
	return out, nil
}

func (c *rpcClient) parent(ctx context.Context, p string) ([]byte, string, error) {
	parts := splitPath(p)
	if len(parts) == 0 {
		return nil, "", &nfs3.StatusError{Proc: "REMOVE", Status: nfs3.ErrInval}
	}
	fh, _, err := c.resolve(ctx, strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	return fh, parts[len(parts)-1], nil
}

func (c *rpcClient) Remove(ctx context.Context, p string) error {
	dir, name, err := c.parent(ctx, p)
	if err != nil {
		return err
	}
	nc, _, err := c.session()
	if err != nil {
		return err
	}
	return nc.Remove(ctx, dir, name)
}

func (c *rpcClient) RemoveAll(ctx context.Context, p string) error {
	dir, name, err := c.parent(ctx, p)
	if err != nil {
		return err
	}
	nc, _, err := c.session()
	if err != nil {
		return err
	}
	res, err := nc.Lookup(ctx, dir, name)
	if err != nil {
		return err
	}
	attr := res.Attr
	if attr == nil {
		if attr, err = nc.GetAttr(ctx, res.Handle); err != nil {
			return err
		}
	}
	if !attr.IsDir() {
		return nc.Remove(ctx, dir, name)
	}
	return removeTree(ctx, nc, dir, name, res.Handle)
}

// removeTree empties the directory fh, then removes it from parent.
func removeTree(ctx context.Context, nc *nfs3.Client, parent []byte, name string, fh []byte) error {
	entries, err := nc.ReadDirAll(ctx, fh)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := e.Handle
		isDir := e.Attr != nil && e.Attr.IsDir()
		if e.Attr == nil || child == nil {
			res, err := nc.Lookup(ctx, fh, e.Name)
			if err != nil {
				return err
			}
			child = res.Handle
			if res.Attr != nil {
				isDir = res.Attr.IsDir()
			} else {
				a, err := nc.GetAttr(ctx, child)
				if err != nil {
					return err
				}
				isDir = a.IsDir()
			}
		}
		if isDir {
			err = removeTree(ctx, nc, fh, e.Name, child)
		} else {
			err = nc.Remove(ctx, fh, e.Name)
		}
		if err != nil {
			return err
		}
	}
	return nc.Rmdir(ctx, parent, name)
}

func (c *rpcClient) Download(ctx context.Context, p string, progress ProgressFunc, done DoneFunc) {
	go func() {
		done(c.read(ctx, p, progress))
	}()
}

func (c *rpcClient) read(ctx context.Context, p string, progress ProgressFunc) ([]byte, error) {
	fh, attr, err := c.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if attr.IsDir() {
		return nil, &nfs3.StatusError{Proc: "READ", Status: nfs3.ErrIsDir}
	}
	nc, _, err := c.session()
	if err != nil {
		return nil, err
	}

	total := int64(attr.Size)
	data := make([]byte, 0, min(total, 16<<20))
	for {
		res, err := nc.Read(ctx, fh, uint64(len(data)), readChunk)
		if err != nil {
			return nil, err
		}
		data = append(data, res.Data...)
		if progress != nil {
			progress(int64(len(data)), total)
		}
		if res.EOF || len(res.Data) == 0 {
			return data, nil
		}
	}
}

func (c *rpcClient) ListExports(ctx context.Context) ([]string, error) {
	mc, err := c.dialMount(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mc.Close() }()

	exports, err := mc.Exports(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(exports))
	for _, e := range exports {
		out = append(out, e.Dir)
	}
	return out, nil
}

// Close unmounts the export and closes both connections.
func (c *rpcClient) Close() error {
	c.mu.Lock()
	mc, nc := c.mnt, c.nfs
	c.mnt, c.nfs, c.root = nil, nil, nil
	c.mu.Unlock()

	if mc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.Umnt(ctx, c.cfg.Export); err != nil {
		logger.Debug("UMNT failed", logger.Export(c.cfg.Export), logger.Err(err))
	}
	return errors.Join(mc.Close(), nc.Close())
}
