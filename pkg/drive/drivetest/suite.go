// Package drivetest provides a conformance suite that every drive.Drive
// backend runs against a server (real or fake) holding StandardTree.
package drivetest

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// File is one element of a seeded tree.
type File struct {
	Path    string
	Dir     bool
	Content string
}

// ModTime is the modification time of every seeded node in MemFS.
var ModTime = time.Date(2024, 3, 9, 16, 20, 0, 0, time.UTC)

// StandardTree is the content the suite expects at the drive root.
var StandardTree = []File{
	{Path: "docs", Dir: true},
	{Path: "docs/readme.md", Content: "# readme\n"},
	{Path: ".hidden", Content: "secret"},
	{Path: "photo.jpg", Content: "jpegdata"},
}

// Factory returns a drive whose root holds StandardTree. It is called once
// per subtest so destructive checks do not leak into each other.
type Factory func(t *testing.T) drive.Drive

// RunConformanceSuite checks the behavior shared by all backends.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("ListRoot", func(t *testing.T) { testListRoot(t, factory(t)) })
	t.Run("ListSubdirectory", func(t *testing.T) { testListSubdirectory(t, factory(t)) })
	t.Run("ListWithPolicy", func(t *testing.T) { testListWithPolicy(t, factory(t)) })
	t.Run("StableIdentity", func(t *testing.T) { testStableIdentity(t, factory(t)) })
	t.Run("FetchBytes", func(t *testing.T) { testFetchBytes(t, factory(t)) })
	t.Run("ResourceURL", func(t *testing.T) { testResourceURL(t, factory(t)) })
	t.Run("Ping", func(t *testing.T) { assert.True(t, factory(t).Ping(context.Background())) })
	t.Run("DeleteFile", func(t *testing.T) { testDeleteFile(t, factory(t)) })
	t.Run("DeleteDirectory", func(t *testing.T) { testDeleteDirectory(t, factory(t)) })
}

func byPath(entries []drive.FileEntry) map[string]drive.FileEntry {
	out := make(map[string]drive.FileEntry, len(entries))
	for _, e := range entries {
		out[e.Path] = e
	}
	return out
}

func paths(entries []drive.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func testListRoot(t *testing.T, d drive.Drive) {
	entries, err := d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs", ".hidden", "photo.jpg"}, paths(entries))

	for _, e := range entries {
		assert.NotEmpty(t, e.Path)
		assert.NotEqual(t, '/', rune(e.Path[0]), "path %q starts with /", e.Path)
		assert.NotEmpty(t, e.Identity)
		assert.GreaterOrEqual(t, e.SizeBytes, int64(0))
		assert.False(t, e.LastModified.IsZero(), "%s has no modification time", e.Path)
		assert.Equal(t, d.Protocol(), e.SourceProtocol)
	}

	m := byPath(entries)
	assert.True(t, m["docs"].IsDirectory)
	assert.False(t, m["photo.jpg"].IsDirectory)
	assert.Equal(t, int64(len("jpegdata")), m["photo.jpg"].SizeBytes)
	assert.True(t, m[".hidden"].IsHidden())
	assert.True(t, m["photo.jpg"].IsImage())
}

func testListSubdirectory(t *testing.T, d drive.Drive) {
	for _, dir := range []string{"docs", "/docs", "docs/"} {
		entries, err := d.ListFiles(context.Background(), dir)
		require.NoError(t, err, dir)
		assert.Equal(t, []string{"docs/readme.md"}, paths(entries), dir)
	}
}

func testListWithPolicy(t *testing.T, d drive.Drive) {
	entries, err := drive.List(context.Background(), d, "", drive.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "photo.jpg"}, paths(entries))
}

func testStableIdentity(t *testing.T, d drive.Drive) {
	first, err := d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	second, err := d.ListFiles(context.Background(), "")
	require.NoError(t, err)

	a, b := byPath(first), byPath(second)
	for p, e := range a {
		assert.Equal(t, e.Identity, b[p].Identity, p)
	}
	assert.NotEqual(t, a["docs"].Identity, a["photo.jpg"].Identity)
}

func find(t *testing.T, d drive.Drive, dir, p string) drive.FileEntry {
	t.Helper()
	entries, err := d.ListFiles(context.Background(), dir)
	require.NoError(t, err)
	e, ok := byPath(entries)[p]
	require.True(t, ok, "%s not listed", p)
	return e
}

func testFetchBytes(t *testing.T, d drive.Drive) {
	data, err := d.FetchBytes(context.Background(), find(t, d, "", "photo.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	data, err = d.FetchBytes(context.Background(), find(t, d, "docs", "docs/readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# readme\n", string(data))
}

func testResourceURL(t *testing.T, d drive.Drive) {
	e := find(t, d, "", "photo.jpg")
	raw, err := d.ResourceURL(e)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, u.Host)
	assert.Contains(t, u.Path, "photo.jpg")
	assert.Equal(t, raw, e.ResourceURL, "listing and ResourceURL disagree")
}

func testDeleteFile(t *testing.T, d drive.Drive) {
	ok, err := d.DeleteFile(context.Background(), find(t, d, "", "photo.jpg"))
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.NotContains(t, paths(entries), "photo.jpg")
}

func testDeleteDirectory(t *testing.T, d drive.Drive) {
	ok, err := d.DeleteFile(context.Background(), find(t, d, "", "docs"))
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := d.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".hidden", "photo.jpg"}, paths(entries))
}
