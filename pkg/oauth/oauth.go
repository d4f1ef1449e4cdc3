// Package oauth abstracts the external OAuth identity provider.
package oauth

import (
	"context"
	"fmt"
)

// Provider represents an OAuth identity provider.
type Provider interface {
	// Name provides the name of the provider.
	Name() string

	// GetAuthURL returns the URL to the auth page of the provider.
	//
	// The "state" parameter is returned as is in the provider's callback
	// and can be used to correlate it with the original request.
	GetAuthURL(ctx context.Context, state string) string

	// TokenFromCode converts the auth code to an access token.
	TokenFromCode(ctx context.Context, code string) (string, error)

	// FetchIdentity fetches the user's profile and verified email list using
	// the given access token. Both underlying calls must succeed, a partial
	// identity is never returned.
	FetchIdentity(ctx context.Context, accessToken string) (Identity, error)
}

// Email is a single address from the provider's verified email list.
type Email struct {
	Address  string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Identity is the user data retrieved from an OAuth provider. It is only
// used transiently during the callback flow.
type Identity struct {
	ID     int64
	Login  string
	Name   string
	Emails []Email
}

// ProviderError is returned when a call to the provider fails. It carries
// the upstream status code for diagnostics.
type ProviderError struct {
	Op         string
	StatusCode int
	Detail     string
}

// Error makes ProviderError implement the error interface.
func (e *ProviderError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s failed with status code: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status code %d: %s", e.Op, e.StatusCode, e.Detail)
}
