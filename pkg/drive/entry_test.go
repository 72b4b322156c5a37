package drive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEntryHelpers(t *testing.T) {
	tests := []struct {
		entry  FileEntry
		name   string
		ext    string
		hidden bool
		image  bool
		video  bool
	}{
		{FileEntry{Path: "photos/IMG_001.JPG"}, "IMG_001.JPG", "jpg", false, true, false},
		{FileEntry{Path: "movies/clip.mp4"}, "clip.mp4", "mp4", false, false, true},
		{FileEntry{Path: ".config", IsDirectory: true}, ".config", "", true, false, false},
		{FileEntry{Path: "archive.tar.gz"}, "archive.tar.gz", "gz", false, false, false},
		{FileEntry{Path: "photos.png", IsDirectory: true}, "photos.png", "", false, false, false},
		{FileEntry{}, "", "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.entry.Path, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.entry.Name())
			assert.Equal(t, tt.ext, tt.entry.Ext())
			assert.Equal(t, tt.hidden, tt.entry.IsHidden())
			assert.Equal(t, tt.image, tt.entry.IsImage())
			assert.Equal(t, tt.video, tt.entry.IsVideo())
		})
	}
}

func TestNewIdentity(t *testing.T) {
	a := NewIdentity(ProtocolWebDAV, "http://h/dav", "docs/a.txt")
	assert.Equal(t, a, NewIdentity(ProtocolWebDAV, "http://h/dav", "docs/a.txt"))
	assert.NotEqual(t, a, NewIdentity(ProtocolWebDAV, "http://h/dav", "docs/b.txt"))
	assert.NotEqual(t, a, NewIdentity(ProtocolSMB, "http://h/dav", "docs/a.txt"))
	assert.Len(t, a, 36)
}

func TestFileEntryJSONOmitsCredentials(t *testing.T) {
	e := FileEntry{
		Path:           "a.txt",
		ResourceURL:    "smb://u:secret@h/share/a.txt",
		AuthToken:      "Basic c2VjcmV0",
		SourceProtocol: ProtocolSMB,
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), `"protocol":"smb"`)
}

func TestParseProtocol(t *testing.T) {
	for in, want := range map[string]Protocol{
		"WebDAV": ProtocolWebDAV, "https": ProtocolWebDAV, "smb": ProtocolSMB, "CIFS": ProtocolSMB, "nfs": ProtocolNFS,
	} {
		got, err := ParseProtocol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseProtocol("ftp")
	assert.Equal(t, KindInvalidConfig, KindOf(err))

	var p Protocol
	require.NoError(t, p.UnmarshalText([]byte("nfs")))
	assert.Equal(t, ProtocolNFS, p)
	assert.Equal(t, 445, ProtocolSMB.DefaultPort())
	assert.Equal(t, 80, ProtocolWebDAV.DefaultPort())
	assert.Equal(t, 0, ProtocolNFS.DefaultPort())
}
