//go:build integration

package webdav

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/drivetest"
)

const (
	davUser = "dav"
	davPass = "davpass"
)

// startWebDAVServer starts an rclone WebDAV server container, or uses
// WEBDAV_ENDPOINT when set. Apache mod_dav is not used: it reports a
// content type for collections.
func startWebDAVServer(t *testing.T) string {
	t.Helper()
	if endpoint := os.Getenv("WEBDAV_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "rclone/rclone:1.68",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"serve", "webdav", "/tmp", "--addr", ":8080", "--user", davUser, "--pass", davPass},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start webdav container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

// seed uploads StandardTree below dir with MKCOL and PUT.
func seed(t *testing.T, endpoint, dir string) {
	t.Helper()
	do := func(method, p, body string) {
		req, err := http.NewRequest(method, endpoint+"/"+p, strings.NewReader(body))
		require.NoError(t, err)
		req.SetBasicAuth(davUser, davPass)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Less(t, resp.StatusCode, 300, "%s %s: %s", method, p, resp.Status)
	}
	do("MKCOL", dir+"/", "")
	for _, f := range drivetest.StandardTree {
		if f.Dir {
			do("MKCOL", dir+"/"+f.Path+"/", "")
		} else {
			do(http.MethodPut, dir+"/"+f.Path, f.Content)
		}
	}
}

func TestIntegrationConformance(t *testing.T) {
	endpoint := startWebDAVServer(t)
	n := 0
	drivetest.RunConformanceSuite(t, func(t *testing.T) drive.Drive {
		n++
		dir := fmt.Sprintf("suite%d", n)
		seed(t, endpoint, dir)
		d, err := New(Config{Host: endpoint, SubPath: dir, Username: davUser, Password: davPass})
		require.NoError(t, err)
		return d
	})
}
