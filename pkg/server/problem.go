package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/registry"
)

// Problem represents an RFC 7807 "problem details" response.
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Kind is the drive error kind behind the problem, if any.
	Kind string `json:"kind,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind, detail string) {
	problem := &Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		Kind:     kind,
	}

	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, "", detail)
}

// statusFor maps a drive error to the HTTP status reported to clients.
func statusFor(err error) int {
	if errors.Is(err, registry.ErrDriveNotFound) {
		return http.StatusNotFound
	}
	switch drive.KindOf(err) {
	case drive.KindInvalidConfig:
		return http.StatusBadRequest
	case drive.KindAuth:
		return http.StatusForbidden
	case drive.KindInsufficientStorage:
		return http.StatusInsufficientStorage
	case drive.KindProtocol, drive.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ""
	if k := drive.KindOf(err); k != 0 {
		kind = k.String()
	}
	writeProblem(w, r, statusFor(err), kind, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
