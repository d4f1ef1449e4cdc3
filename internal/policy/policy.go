// Package policy decides whether a fetched identity is permitted to hold a
// session.
package policy

import (
	"strings"

	"github.com/umhc/auth-server/pkg/oauth"
)

// Policy allows exactly one committee email address.
type Policy struct {
	allowedEmail string
}

// New creates a Policy for the given allow-listed email address.
func New(allowedEmail string) Policy {
	return Policy{allowedEmail: allowedEmail}
}

// Authorized reports whether the identity carries the allow-listed address
// among its provider-verified emails. The comparison is case-insensitive.
// Deterministic, no side effects.
func (p Policy) Authorized(identity oauth.Identity) bool {
	for _, email := range identity.Emails {
		if email.Verified && strings.EqualFold(email.Address, p.allowedEmail) {
			return true
		}
	}
	return false
}
