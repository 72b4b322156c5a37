package drive

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileEntry is one directory entry, normalized across protocols.
type FileEntry struct {
	// Path is relative to the drive root and never starts with "/".
	Path string `json:"path" yaml:"path"`

	// Identity is an opaque token, stable for a given drive and path.
	Identity string `json:"identity" yaml:"identity"`

	IsDirectory  bool      `json:"is_directory" yaml:"is_directory"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
	SizeBytes    int64     `json:"size_bytes" yaml:"size_bytes"`

	// ResourceURL addresses the entry directly. SMB URLs embed credentials.
	ResourceURL string `json:"-" yaml:"-"`

	// AuthToken is the Authorization header value needed to dereference
	// ResourceURL (WebDAV only).
	AuthToken string `json:"-" yaml:"-"`

	SourceProtocol Protocol `json:"protocol" yaml:"protocol"`
}

var (
	imageExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "heic": true, "webp": true}
	videoExtensions = map[string]bool{"mkv": true, "mp4": true, "mov": true, "avi": true, "m4v": true}
)

// Name returns the last path element.
func (e FileEntry) Name() string {
	if e.Path == "" {
		return ""
	}
	return path.Base(e.Path)
}

// Ext returns the lower-case extension without the dot. Directories have
// no extension.
func (e FileEntry) Ext() string {
	if e.IsDirectory {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(e.Name()), "."))
}

// IsHidden reports whether the base name starts with ".".
func (e FileEntry) IsHidden() bool {
	return strings.HasPrefix(e.Name(), ".")
}

func (e FileEntry) IsImage() bool {
	return imageExtensions[e.Ext()]
}

func (e FileEntry) IsVideo() bool {
	return videoExtensions[e.Ext()]
}

var identityNamespace = uuid.MustParse("6f8a3c2e-9d14-4b7a-a5c1-2e0d9b3f7c48")

// NewIdentity derives an entry identity from the drive root and the entry
// path. Listing the same directory twice yields the same identities.
func NewIdentity(p Protocol, root, entryPath string) string {
	return uuid.NewSHA1(identityNamespace, []byte(p.String()+"\x00"+root+"\x00"+entryPath)).String()
}
