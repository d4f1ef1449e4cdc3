// Package session implements the signed session token that asserts a
// verified committee identity.
package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// RoleCommittee is the only role ever embedded in a session token.
const RoleCommittee = "committee"

var (
	// ErrBadSignature is returned when the token signature does not verify
	// against the codec secret, or the token is not parseable at all.
	ErrBadSignature = errors.New("token signature is invalid")
	// ErrExpired is returned when the token expiry is not in the future.
	ErrExpired = errors.New("token has expired")
	// ErrClaimMismatch is returned when the issuer or audience claims do not
	// match the codec's expected values.
	ErrClaimMismatch = errors.New("token claims do not match")
	// ErrMalformed is returned when a required claim is absent or mistyped.
	ErrMalformed = errors.New("token claims are malformed")
)

// Claims are the assertions embedded in a session token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	// Email is always the allow-listed committee address, never the
	// provider's raw value.
	Email string `json:"email"`
	Role  string `json:"role"`
	// LoginTime is the RFC3339 time of the login that produced this token.
	LoginTime string `json:"loginTime"`

	// ExpiresAt is the standard exp claim.
	ExpiresAt time.Time `json:"-"`
}

// Codec issues and verifies session tokens. Tokens are JWTs signed with
// HMAC-SHA256 using a server-held secret.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewCodec creates a Codec for the given secret, issuer, audience and token
// lifetime.
func NewCodec(secret, issuer, audience string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl}
}

// Issue builds and signs a token for the given claims, expiring ttl after
// the given time.
func (c *Codec) Issue(claims Claims, now time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Issuer(c.issuer).
		Audience([]string{c.audience}).
		IssuedAt(now).
		Expiration(now.Add(c.ttl)).
		Claim("userId", claims.UserID).
		Claim("username", claims.Username).
		Claim("name", claims.Name).
		Claim("email", claims.Email).
		Claim("role", claims.Role).
		Claim("loginTime", claims.LoginTime).
		Build()
	if err != nil {
		return "", fmt.Errorf("error in jwt builder Build call: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), c.secret))
	if err != nil {
		return "", fmt.Errorf("error in jwt.Sign call: %w", err)
	}

	return string(signed), nil
}

// Verify checks the token signature, expiry, issuer and audience at the
// given time, in that order, and returns the embedded claims. The signature
// is verified before any claim is trusted.
func (c *Codec) Verify(token string, now time.Time) (Claims, error) {
	// Signature check. Validation is done manually below so each failure
	// mode maps to a distinct error.
	parsed, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256(), c.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	// Expiry. A token whose expiry equals the current time is rejected.
	expiry, found := parsed.Expiration()
	if !found {
		return Claims{}, fmt.Errorf("%w: exp claim is missing", ErrMalformed)
	}
	if !expiry.After(now) {
		return Claims{}, ErrExpired
	}

	// Issuer and audience must match the fixed expected values.
	if iss, found := parsed.Issuer(); !found || iss != c.issuer {
		return Claims{}, fmt.Errorf("%w: unexpected issuer", ErrClaimMismatch)
	}
	if aud, found := parsed.Audience(); !found || !slices.Contains(aud, c.audience) {
		return Claims{}, fmt.Errorf("%w: unexpected audience", ErrClaimMismatch)
	}

	claims := Claims{ExpiresAt: expiry}

	// JSON numbers decode as float64.
	var userID float64
	if err := parsed.Get("userId", &userID); err != nil {
		return Claims{}, fmt.Errorf("%w: failed to decode userId claim: %v", ErrMalformed, err)
	}
	claims.UserID = int64(userID)

	for key, target := range map[string]*string{
		"username":  &claims.Username,
		"name":      &claims.Name,
		"email":     &claims.Email,
		"role":      &claims.Role,
		"loginTime": &claims.LoginTime,
	} {
		if err := parsed.Get(key, target); err != nil {
			return Claims{}, fmt.Errorf("%w: failed to decode %s claim: %v", ErrMalformed, key, err)
		}
	}

	return claims, nil
}
