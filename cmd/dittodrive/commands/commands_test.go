package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
)

func TestRootCommandTree(t *testing.T) {
	root := GetRootCmd()
	for _, name := range []string{"version", "ping", "ls", "rm", "get", "url", "shares", "exports", "serve", "drive", "config", "completion"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}

	for _, flag := range []string{"config", "output", "no-color", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestEntryListRows(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	list := EntryList{
		now: now,
		entries: []drive.FileEntry{
			{Path: "media", IsDirectory: true, LastModified: now.Add(-time.Hour)},
			{Path: "media/poster.jpg", SizeBytes: 2048},
		},
	}

	rows := list.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"dir", "media/", "-", "Jun 15 11:00"}, rows[0])
	assert.Equal(t, []string{"file", "poster.jpg", "2.00KiB", "-"}, rows[1])
	assert.Equal(t, []string{"TYPE", "NAME", "SIZE", "MODIFIED"}, list.Headers())
}

func TestPingListRows(t *testing.T) {
	list := PingList{
		{Name: "nas", Protocol: drive.ProtocolWebDAV, Detail: "alice@nas.local", Reachable: true},
		{Name: "lab", Protocol: drive.ProtocolNFS, Detail: "10.0.0.5/srv", Reachable: false},
	}
	rows := list.Rows()
	assert.Equal(t, []string{"nas", "webdav", "alice@nas.local", "yes"}, rows[0])
	assert.Equal(t, []string{"lab", "nfs", "10.0.0.5/srv", "no"}, rows[1])
}

func TestNameList(t *testing.T) {
	list := NameList{header: "SHARE", names: []string{"public", "media"}}
	assert.Equal(t, []string{"SHARE"}, list.Headers())
	assert.Equal(t, [][]string{{"public"}, {"media"}}, list.Rows())
	assert.Equal(t, []nameRow{{Name: "public"}, {Name: "media"}}, nameRows(list.names))
}

func TestDriveNames(t *testing.T) {
	cfg := &config.Config{Drives: []config.DriveConfig{{Name: "nas"}, {Name: "office"}}}
	assert.Equal(t, []string{"nas", "office"}, driveNames(cfg))
	assert.Empty(t, driveNames(&config.Config{}))
}
