// Package errutils provides the error type that maps application failures to
// HTTP responses.
package errutils

import (
	"errors"
	"net/http"
)

// HTTPError implements the error interface and carries the HTTP status code
// that the error should be surfaced with.
type HTTPError struct {
	Status int    `json:"-"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// Error makes HTTPError implement the error interface.
func (h *HTTPError) Error() string {
	if h.Reason == "" {
		return h.Code
	}
	return h.Code + ": " + h.Reason
}

// WithReasonStr returns a copy of the error with the given reason attached.
func (h *HTTPError) WithReasonStr(reason string) *HTTPError {
	cp := *h
	cp.Reason = reason
	return &cp
}

// WithReasonErr returns a copy of the error with the given error's message
// attached as the reason.
func (h *HTTPError) WithReasonErr(err error) *HTTPError {
	return h.WithReasonStr(err.Error())
}

// ToHTTPError converts any error to an *HTTPError. Unrecognized errors become
// an internal server error so their details never reach the client.
func ToHTTPError(err error) *HTTPError {
	httpError := &HTTPError{}
	if errors.As(err, &httpError) {
		return httpError
	}
	return InternalServerError()
}

// BadRequest returns an HTTPError with the 400 status.
func BadRequest() *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: http.StatusText(http.StatusBadRequest)}
}

// Unauthorized returns an HTTPError with the 401 status.
func Unauthorized() *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Code: http.StatusText(http.StatusUnauthorized)}
}

// Forbidden returns an HTTPError with the 403 status.
func Forbidden() *HTTPError {
	return &HTTPError{Status: http.StatusForbidden, Code: http.StatusText(http.StatusForbidden)}
}

// NotFound returns an HTTPError with the 404 status.
func NotFound() *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Code: http.StatusText(http.StatusNotFound)}
}

// RequestTimeout returns an HTTPError with the 408 status.
func RequestTimeout() *HTTPError {
	return &HTTPError{Status: http.StatusRequestTimeout, Code: http.StatusText(http.StatusRequestTimeout)}
}

// InternalServerError returns an HTTPError with the 500 status.
func InternalServerError() *HTTPError {
	return &HTTPError{Status: http.StatusInternalServerError, Code: http.StatusText(http.StatusInternalServerError)}
}
