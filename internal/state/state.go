// Package state implements the opaque "state" value used for CSRF protection
// during the OAuth flow.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// NonceLength is the length of the random nonce embedded in every token.
const NonceLength = 32

// nonceAlphabet is the character set the nonce is drawn from.
const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// MaxAge is the window within which a token is considered fresh. If the
// provider takes longer than this to call back, the flow fails.
const MaxAge = 10 * time.Minute

// ErrMalformed is returned when a state value cannot be decoded.
var ErrMalformed = errors.New("malformed state token")

// Token is the decoded form of the state value. It is not signed or
// encrypted, it is only an unguessable CSRF marker combined with timing.
//
// Single use is NOT enforced. Enforcing it would require a store shared
// across instances, which this service deliberately does not have. A captured
// state value therefore remains replayable until it goes stale.
type Token struct {
	// Nonce makes the token unguessable.
	Nonce string `json:"nonce"`
	// Timestamp is the creation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Origin of the request that started the flow. Diagnostic only, never
	// used for trust decisions.
	Origin string `json:"origin,omitempty"`
}

// New creates a Token with a fresh nonce and the given creation time.
func New(origin string, now time.Time) Token {
	return Token{Nonce: newNonce(), Timestamp: now.UnixMilli(), Origin: origin}
}

// Fresh reports whether the token is younger than MaxAge at the given time.
// A token exactly MaxAge old is stale.
func (t Token) Fresh(now time.Time) bool {
	return now.UnixMilli()-t.Timestamp < MaxAge.Milliseconds()
}

// Encode serializes the token into its opaque transport form.
func Encode(t Token) string {
	// Token has no unmarshalable fields, so this cannot fail.
	b, _ := json.Marshal(t)
	return base64.StdEncoding.EncodeToString(b)
}

// Decode parses an opaque state value back into a Token.
func Decode(value string) (Token, error) {
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Token{}, fmt.Errorf("%w: failed to base64 decode: %v", ErrMalformed, err)
	}

	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return Token{}, fmt.Errorf("%w: error in json.Unmarshal call: %v", ErrMalformed, err)
	}

	// A token without a timestamp can never be validated for freshness.
	if t.Timestamp == 0 {
		return Token{}, fmt.Errorf("%w: timestamp is missing", ErrMalformed)
	}

	return t, nil
}

// newNonce returns a crypto-random string of NonceLength characters drawn
// from nonceAlphabet.
func newNonce() string {
	nonce, err := readNonce(rand.Reader)
	if err != nil {
		panic("error in readNonce call: " + err.Error())
	}
	return nonce
}

// readNonce draws NonceLength characters from nonceAlphabet with rejection
// sampling, so every character is equally likely.
func readNonce(r io.Reader) (string, error) {
	// 256 is not a multiple of the alphabet size, so bytes at or above this
	// limit would skew the modulo towards the start of the alphabet. They
	// are discarded and redrawn.
	const limit = 256 - 256%len(nonceAlphabet)

	out := make([]byte, 0, NonceLength)
	buf := make([]byte, NonceLength)
	for len(out) < NonceLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("error in io.ReadFull call: %w", err)
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, nonceAlphabet[int(b)%len(nonceAlphabet)])
			if len(out) == NonceLength {
				break
			}
		}
	}
	return string(out), nil
}
