package handler

import (
	"errors"
)

const (
	// maxStateLength bounds the state parameter accepted from the provider
	// callback. Legitimate values are far smaller.
	maxStateLength = 1024
	// maxTokenLength bounds the session token accepted on verification.
	maxTokenLength = 4096
)

var (
	errStateTooLong = errors.New("state parameter exceeds the allowed length")
	errTokenTooLong = errors.New("token exceeds the allowed length")
)

// validateStateParam validates the state parameter when received from an
// external caller, before any decoding is attempted.
func validateStateParam(s string) error {
	if len(s) > maxStateLength {
		return errStateTooLong
	}
	return nil
}

// validateTokenParam validates a presented session token before it reaches
// the codec.
func validateTokenParam(t string) error {
	if len(t) > maxTokenLength {
		return errTokenTooLong
	}
	return nil
}
