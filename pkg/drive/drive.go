package drive

import "context"

// Drive is the contract shared by the WebDAV, SMB and NFS backends.
//
// Implementations must be safe for concurrent use. Ordering between
// concurrent calls on the same drive is whatever the transport gives.
type Drive interface {
	// Protocol reports which backend this is.
	Protocol() Protocol

	// Ping is a best-effort reachability and credential check. It never
	// returns an error: any failure yields false.
	Ping(ctx context.Context) bool

	// ListFiles lists the direct children of dir (relative to the drive
	// root). The entry describing dir itself is never returned. An empty
	// directory yields an empty slice and a nil error.
	ListFiles(ctx context.Context, dir string) ([]FileEntry, error)

	// DeleteFile removes the entry, recursively for directories. A
	// well-formed negative reply from the server yields (false, nil);
	// transport and credential failures are returned as errors.
	DeleteFile(ctx context.Context, entry FileEntry) (bool, error)

	// FetchBytes downloads the whole content of a file.
	FetchBytes(ctx context.Context, entry FileEntry) ([]byte, error)

	// ResourceURL returns a URL that addresses the entry outside this
	// process. WebDAV URLs need entry.AuthToken as Authorization header;
	// SMB URLs embed the credentials.
	ResourceURL(entry FileEntry) (string, error)
}

// ShareLister is implemented by backends that can enumerate the shares a
// server offers (SMB). Used when configuring a drive, not while browsing.
type ShareLister interface {
	ListShares(ctx context.Context) ([]string, error)
}

// ExportLister is implemented by backends that can enumerate the exports a
// server offers (NFS). Used when configuring a drive, not while browsing.
type ExportLister interface {
	ListExports(ctx context.Context) ([]string, error)
}

// Closer is implemented by backends holding a session that should be
// released when the browsing session ends.
type Closer interface {
	Close() error
}

// List lists dir and applies p to the result.
func List(ctx context.Context, d Drive, dir string, p Policy) ([]FileEntry, error) {
	entries, err := d.ListFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	return p.Apply(dir, entries), nil
}

// Close releases d's session if it holds one.
func Close(d Drive) error {
	if c, ok := d.(Closer); ok {
		return c.Close()
	}
	return nil
}
