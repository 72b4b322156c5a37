package webdav

import (
	"fmt"
	"net/http"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// StatusError is an unexpected HTTP status, carried as the cause of drive
// errors.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected HTTP status %s", e.Status)
	}
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

func isAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusPaymentRequired || code == http.StatusForbidden
}

// checkStatus maps a response status to the drive error taxonomy.
func checkStatus(resp *http.Response, op, path string) error {
	code := resp.StatusCode
	serr := &StatusError{Code: code, Status: resp.Status}
	switch {
	case isSuccess(code):
		return nil
	case isAuthFailure(code):
		return drive.NewAuthError(op, path, serr)
	case code == http.StatusInsufficientStorage:
		return drive.NewInsufficientStorageError(op, path)
	default:
		return drive.NewProtocolError(op, path, serr)
	}
}
