package server

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittodrive/internal/cli/health"
	"github.com/marmos91/dittodrive/internal/cli/timeutil"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/registry"
)

// DriveInfo describes a configured drive in API responses.
type DriveInfo struct {
	Name     string         `json:"name"`
	Protocol drive.Protocol `json:"protocol"`
	Detail   string         `json:"detail"`
}

// PingResult is the body of the ping endpoint.
type PingResult struct {
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
}

// Listing is the body of the entries endpoint.
type Listing struct {
	Drive   string            `json:"drive"`
	Path    string            `json:"path"`
	Parent  string            `json:"parent"`
	Entries []drive.FileEntry `json:"entries"`
}

type handler struct {
	registry *registry.Registry
	policy   drive.Policy
	version  string
	started  time.Time
}

func newHandler(reg *registry.Registry, policy drive.Policy, version string) *handler {
	return &handler{registry: reg, policy: policy, version: version, started: time.Now()}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.started)
	resp := health.Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: health.Data{
			Service:   "dittodrive",
			Version:   h.version,
			StartedAt: h.started.UTC().Format(time.RFC3339),
			Uptime:    timeutil.FormatUptime(uptime),
			UptimeSec: int64(uptime.Seconds()),
			Drives:    h.registry.Count(),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listDrives(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.List()
	drives := make([]DriveInfo, 0, len(entries))
	for _, e := range entries {
		drives = append(drives, DriveInfo{Name: e.Name, Protocol: e.Protocol, Detail: e.Detail})
	}
	writeJSON(w, http.StatusOK, drives)
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*registry.Entry, bool) {
	e, err := h.registry.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return e, true
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PingResult{Name: e.Name, Reachable: e.Drive.Ping(r.Context())})
}

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	dir := drive.CleanPath(r.URL.Query().Get("path"))

	policy := h.policy
	if v := r.URL.Query().Get("hidden"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, r, "hidden must be a boolean")
			return
		}
		policy.HideHidden = !show
	}

	entries, err := drive.List(r.Context(), e.Drive, dir, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Listing{
		Drive:   e.Name,
		Path:    dir,
		Parent:  drive.ParentPath(dir),
		Entries: entries,
	})
}

func (h *handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	entry, ok := entryFromQuery(w, r)
	if !ok {
		return
	}

	deleted, err := e.Drive.DeleteFile(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeProblem(w, r, http.StatusConflict, "", "the server refused to delete "+entry.Path)
		return
	}
	logger.InfoCtx(r.Context(), "Entry deleted", logger.Drive(e.Name), logger.Path(entry.Path), logger.IsDir(entry.IsDirectory))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) content(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	entry, ok := entryFromQuery(w, r)
	if !ok {
		return
	}

	data, err := e.Drive.FetchBytes(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(entry.Path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": entry.Name()}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// entryFromQuery builds the entry addressed by ?path=&dir=. The drive root
// cannot be addressed.
func entryFromQuery(w http.ResponseWriter, r *http.Request) (drive.FileEntry, bool) {
	q := r.URL.Query()
	p := drive.CleanPath(q.Get("path"))
	if p == "" {
		badRequest(w, r, "path is required")
		return drive.FileEntry{}, false
	}
	isDir := false
	if v := q.Get("dir"); v != "" {
		var err error
		if isDir, err = strconv.ParseBool(v); err != nil {
			badRequest(w, r, "dir must be a boolean")
			return drive.FileEntry{}, false
		}
	}
	return drive.FileEntry{Path: p, IsDirectory: isDir}, true
}
