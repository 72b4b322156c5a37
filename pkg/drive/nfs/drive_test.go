package nfs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/internal/protocol/mount"
	"github.com/marmos91/dittodrive/internal/protocol/nfs3"
	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/drivetest"
)

func newFakeDrive(t *testing.T, c *memClient, mutate ...func(*Config)) *Drive {
	t.Helper()
	cfg := Config{Host: "nas.local", Export: "export", MachineName: "test"}
	for _, m := range mutate {
		m(&cfg)
	}
	d, err := New(cfg, WithDialer(c.dialer(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestConformanceFakeClient(t *testing.T) {
	drivetest.RunConformanceSuite(t, func(t *testing.T) drive.Drive {
		return newFakeDrive(t, newMemClient())
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		export  string
	}{
		{name: "relative export", cfg: Config{Host: "nas", Export: "srv/media"}, export: "/srv/media"},
		{name: "trailing slash", cfg: Config{Host: "nas", Export: "/srv/media/"}, export: "/srv/media"},
		{name: "no export", cfg: Config{Host: "nas"}},
		{name: "empty host", cfg: Config{Export: "/x"}, wantErr: true},
		{name: "host with path", cfg: Config{Host: "nas/x", Export: "/x"}, wantErr: true},
		{name: "bad port", cfg: Config{Host: "nas", Port: 70000}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, drive.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.export, d.Export())
			assert.Equal(t, drive.ProtocolNFS, d.Protocol())
		})
	}
}

func TestResourceURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
		path string
		want string
	}{
		{name: "default port", host: "nas", path: "a/b.mkv", want: "nfs://nas/export/a/b.mkv"},
		{name: "explicit 2049", host: "nas", port: 2049, path: "b.mkv", want: "nfs://nas/export/b.mkv"},
		{name: "custom port", host: "nas", port: 12049, path: "b.mkv", want: "nfs://nas:12049/export/b.mkv"},
		{name: "ipv6", host: "fe80::1", path: "b.mkv", want: "nfs://[fe80::1]/export/b.mkv"},
		{name: "escaped", host: "nas", path: "my file#1.jpg", want: "nfs://nas/export/my%20file%231.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDrive(t, newMemClient(), func(c *Config) { c.Host, c.Port = tt.host, tt.port })
			got, err := d.ResourceURL(drive.FileEntry{Path: tt.path})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectOnce(t *testing.T) {
	c := newMemClient()
	var dials atomic.Int32
	d, err := New(Config{Host: "nas", Export: "/export"}, WithDialer(c.dialer(&dials)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.ListFiles(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, int32(1), c.mounts.Load())

	require.NoError(t, d.Close())
	assert.Equal(t, int32(1), c.closed.Load())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind drive.ErrorKind
	}{
		{name: "nfs access", err: &nfs3.StatusError{Proc: "READDIRPLUS", Status: nfs3.ErrAccess}, kind: drive.KindAuth},
		{name: "nfs perm", err: &nfs3.StatusError{Proc: "READDIRPLUS", Status: nfs3.ErrPerm}, kind: drive.KindAuth},
		{name: "rpc auth", err: &rpc.AuthError{Stat: rpc.AuthTooWeak}, kind: drive.KindAuth},
		{name: "nfs stale", err: &nfs3.StatusError{Proc: "READDIRPLUS", Status: nfs3.ErrStale}, kind: drive.KindProtocol},
		{name: "transport", err: rpc.ErrBroken, kind: drive.KindProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMemClient()
			c.opErr = tt.err
			d := newFakeDrive(t, c)
			_, err := d.ListFiles(context.Background(), "")
			require.Error(t, err)
			assert.Equal(t, tt.kind, drive.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTransportErrorResetsSession(t *testing.T) {
	c := newMemClient()
	var dials atomic.Int32
	d, err := New(Config{Host: "nas", Export: "/export"}, WithDialer(c.dialer(&dials)))
	require.NoError(t, err)

	c.opErr = errors.New("connection reset by peer")
	_, err = d.ListFiles(context.Background(), "")
	require.Error(t, err)

	c.opErr = nil
	_, err = d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), dials.Load())

	c.opErr = &nfs3.StatusError{Proc: "READDIRPLUS", Status: nfs3.ErrNoEnt}
	_, err = d.ListFiles(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, int32(2), dials.Load(), "a status reply keeps the session")
}

func TestCancellationKeepsSession(t *testing.T) {
	c := newMemClient()
	var dials atomic.Int32
	d, err := New(Config{Host: "nas", Export: "/export"}, WithDialer(c.dialer(&dials)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	ctx := context.Background()

	_, err = d.ListFiles(ctx, "")
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{name: "list", run: func(ctx context.Context) error {
			_, err := d.ListFiles(ctx, "docs")
			return err
		}},
		{name: "fetch", run: func(ctx context.Context) error {
			_, err := d.FetchBytes(ctx, drive.FileEntry{Path: "docs/readme.md"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := tt.run(cctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, drive.KindProtocol, drive.KindOf(err))
			assert.Equal(t, drive.StateConnected, d.conn.State())
		})
	}

	_, err = d.ListFiles(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, int32(1), c.mounts.Load())
	assert.Equal(t, int32(0), c.closed.Load())
}

func TestBrokenClientIsRemounted(t *testing.T) {
	c := newMemClient()
	var dials atomic.Int32
	d, err := New(Config{Host: "nas", Export: "/export"}, WithDialer(c.dialer(&dials)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.ListFiles(context.Background(), "")
	require.NoError(t, err)

	c.broken.Store(true)
	_, err = d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.closed.Load())
	assert.Equal(t, int32(2), dials.Load())
	assert.Equal(t, int32(2), c.mounts.Load())
}

func TestMountFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind drive.ErrorKind
	}{
		{name: "denied", err: &mount.StatusError{Status: mount.ErrAccess, Path: "/export"}, kind: drive.KindAuth},
		{name: "missing", err: &mount.StatusError{Status: mount.ErrNoEnt, Path: "/export"}, kind: drive.KindProtocol},
		{name: "unreachable", err: errors.New("dial tcp: connection refused"), kind: drive.KindProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMemClient()
			c.mountErr = tt.err
			d := newFakeDrive(t, c)

			assert.False(t, d.Ping(context.Background()))
			_, err := d.ListFiles(context.Background(), "")
			assert.Equal(t, tt.kind, drive.KindOf(err))
			assert.Positive(t, c.closed.Load(), "client closed after failed mount")
		})
	}
}

func TestMissingExport(t *testing.T) {
	d := newFakeDrive(t, newMemClient(), func(c *Config) { c.Export = "" })
	_, err := d.ListFiles(context.Background(), "")
	assert.ErrorIs(t, err, drive.ErrInvalidConfig)

	exports, err := d.ListExports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/export"}, exports)
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file is false", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient())
		ok, err := d.DeleteFile(ctx, drive.FileEntry{Path: "nope.txt"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("root refused", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient())
		_, err := d.DeleteFile(ctx, drive.FileEntry{Path: "/", IsDirectory: true})
		assert.ErrorIs(t, err, drive.ErrInvalidConfig)
	})

	t.Run("access denied is an error", func(t *testing.T) {
		c := newMemClient()
		d := newFakeDrive(t, c)
		c.opErr = &nfs3.StatusError{Proc: "REMOVE", Status: nfs3.ErrAccess}
		ok, err := d.DeleteFile(ctx, drive.FileEntry{Path: "photo.jpg"})
		assert.False(t, ok)
		assert.ErrorIs(t, err, drive.ErrAuth)
	})

	t.Run("directory is recursive", func(t *testing.T) {
		c := newMemClient()
		d := newFakeDrive(t, c)
		ok, err := d.DeleteFile(ctx, drive.FileEntry{Path: "docs", IsDirectory: true})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, c.fs.Exists("docs/readme.md"))
	})
}

func TestFetchBytes(t *testing.T) {
	ctx := context.Background()

	t.Run("directory", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient())
		_, err := d.FetchBytes(ctx, drive.FileEntry{Path: "docs", IsDirectory: true})
		assert.ErrorIs(t, err, drive.ErrInvalidConfig)
	})

	t.Run("declared size over limit", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient(), func(c *Config) { c.MaxFetchSize = 4 })
		_, err := d.FetchBytes(ctx, drive.FileEntry{Path: "photo.jpg", SizeBytes: 8})
		assert.ErrorIs(t, err, errTooLarge)
	})

	t.Run("progress over limit", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient(), func(c *Config) { c.MaxFetchSize = 4 })
		_, err := d.FetchBytes(ctx, drive.FileEntry{Path: "photo.jpg"})
		assert.ErrorIs(t, err, errTooLarge)
		assert.Equal(t, drive.KindProtocol, drive.KindOf(err))
	})

	t.Run("missing", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient())
		_, err := d.FetchBytes(ctx, drive.FileEntry{Path: "gone.bin"})
		assert.ErrorIs(t, err, drive.ErrRejected)
	})

	t.Run("cancelled", func(t *testing.T) {
		d := newFakeDrive(t, newMemClient())
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := d.FetchBytes(cctx, drive.FileEntry{Path: "photo.jpg"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
