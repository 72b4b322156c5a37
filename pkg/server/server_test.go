package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/internal/cli/health"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/drivetest"
	"github.com/marmos91/dittodrive/pkg/registry"
)

func newTestRouter(t *testing.T) (http.Handler, *drivetest.MemDrive) {
	t.Helper()
	md := drivetest.NewMemDrive(drive.ProtocolWebDAV)
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("nas", "alice@nas.local/media", md))
	t.Cleanup(func() { _ = reg.Close() })
	return NewRouter(reg, drive.DefaultPolicy(), "v1.2.3"), md
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	return p
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp health.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "dittodrive", resp.Data.Service)
	assert.Equal(t, "v1.2.3", resp.Data.Version)
	assert.Equal(t, 1, resp.Data.Drives)
}

func TestListDrives(t *testing.T) {
	h, _ := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/api/v1/drives")
	require.Equal(t, http.StatusOK, w.Code)

	var drives []DriveInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&drives))
	require.Len(t, drives, 1)
	assert.Equal(t, "nas", drives[0].Name)
	assert.Equal(t, drive.ProtocolWebDAV, drives[0].Protocol)
	assert.Equal(t, "alice@nas.local/media", drives[0].Detail)
}

func TestPing(t *testing.T) {
	h, md := newTestRouter(t)

	var res PingResult
	w := do(t, h, http.MethodGet, "/api/v1/drives/nas/ping")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Reachable)

	md.Fail(drive.NewAuthError("connect", "", nil))
	w = do(t, h, http.MethodGet, "/api/v1/drives/nas/ping")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.False(t, res.Reachable)
}

func TestListEntries(t *testing.T) {
	h, _ := newTestRouter(t)

	t.Run("Root", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/drives/nas/entries")
		require.Equal(t, http.StatusOK, w.Code)

		var l Listing
		require.NoError(t, json.NewDecoder(w.Body).Decode(&l))
		assert.Equal(t, "nas", l.Drive)
		assert.Equal(t, "", l.Path)
		require.Len(t, l.Entries, 2)
		assert.Equal(t, "docs", l.Entries[0].Path)
		assert.True(t, l.Entries[0].IsDirectory)
		assert.Equal(t, "photo.jpg", l.Entries[1].Path)
	})

	t.Run("ShowHidden", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/drives/nas/entries?hidden=true")
		require.Equal(t, http.StatusOK, w.Code)

		var l Listing
		require.NoError(t, json.NewDecoder(w.Body).Decode(&l))
		assert.Len(t, l.Entries, 3)
	})

	t.Run("Subdirectory", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/drives/nas/entries?path=/docs/")
		require.Equal(t, http.StatusOK, w.Code)

		var l Listing
		require.NoError(t, json.NewDecoder(w.Body).Decode(&l))
		assert.Equal(t, "docs", l.Path)
		require.Len(t, l.Entries, 1)
		assert.Equal(t, "docs/readme.md", l.Entries[0].Path)
	})

	t.Run("InvalidHidden", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/drives/nas/entries?hidden=maybe")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownDrive", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/v1/drives/missing/entries")
		require.Equal(t, http.StatusNotFound, w.Code)
		p := decodeProblem(t, w)
		assert.Equal(t, "/api/v1/drives/missing/entries", p.Instance)
	})
}

func TestErrorKindStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"Auth", drive.NewAuthError("list", "", nil), http.StatusForbidden, "Auth"},
		{"Protocol", drive.NewProtocolError("list", "", errors.New("reset")), http.StatusBadGateway, "Protocol"},
		{"Parse", drive.NewParseError("list", "", nil), http.StatusBadGateway, "Parse"},
		{"InsufficientStorage", drive.NewInsufficientStorageError("list", ""), http.StatusInsufficientStorage, "InsufficientStorage"},
		{"InvalidConfig", drive.NewInvalidConfigError("bad host", nil), http.StatusBadRequest, "InvalidConfig"},
		{"Unclassified", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, md := newTestRouter(t)
			md.Fail(tt.err)

			w := do(t, h, http.MethodGet, "/api/v1/drives/nas/entries")
			require.Equal(t, tt.status, w.Code)
			p := decodeProblem(t, w)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.kind, p.Kind)
		})
	}
}

func TestDeleteEntry(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		h, md := newTestRouter(t)
		w := do(t, h, http.MethodDelete, "/api/v1/drives/nas/entries?path=photo.jpg")
		require.Equal(t, http.StatusNoContent, w.Code)
		_, err := md.FS.ReadFile("photo.jpg")
		assert.Error(t, err)
	})

	t.Run("Directory", func(t *testing.T) {
		h, md := newTestRouter(t)
		w := do(t, h, http.MethodDelete, "/api/v1/drives/nas/entries?path=docs&dir=true")
		require.Equal(t, http.StatusNoContent, w.Code)
		_, err := md.FS.ReadFile("docs/readme.md")
		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		h, _ := newTestRouter(t)
		w := do(t, h, http.MethodDelete, "/api/v1/drives/nas/entries?path=nope.txt")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("RootRejected", func(t *testing.T) {
		h, _ := newTestRouter(t)
		w := do(t, h, http.MethodDelete, "/api/v1/drives/nas/entries?path=/")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidDir", func(t *testing.T) {
		h, _ := newTestRouter(t)
		w := do(t, h, http.MethodDelete, "/api/v1/drives/nas/entries?path=docs&dir=x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestContent(t *testing.T) {
	h, md := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/v1/drives/nas/content?path=photo.jpg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpegdata", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "photo.jpg")

	md.SetMaxFetchSize(4)
	w = do(t, h, http.MethodGet, "/api/v1/drives/nas/content?path=photo.jpg")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/drives/nas/content")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerStartStop(t *testing.T) {
	reg := registry.NewRegistry()
	srv := New(Config{Listen: "127.0.0.1:0", ShutdownTimeout: time.Second}, reg, drive.DefaultPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
