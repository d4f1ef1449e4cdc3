// Package httputils provides helpers to write HTTP responses consistently.
package httputils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/umhc/auth-server/internal/utils/errutils"
)

// Write writes the given status code, headers and body to the response.
// A nil body writes no response body at all.
func Write(w http.ResponseWriter, status int, headers map[string]string, body any) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}

	if body == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", "err", err)
	}
}

// WriteErr writes the given error to the response. Errors that are not
// *errutils.HTTPError are written as a generic 500.
func WriteErr(w http.ResponseWriter, err error) {
	httpError := errutils.ToHTTPError(err)
	Write(w, httpError.Status, nil, httpError)
}

// Is2xx returns true if the given status code is in the 2xx range.
func Is2xx(status int) bool {
	return status >= 200 && status < 300
}
