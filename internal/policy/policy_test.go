package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/umhc/auth-server/pkg/oauth"
)

func TestPolicy_Authorized(t *testing.T) {
	const allowedEmail = "committee@example.com"

	for _, tc := range []struct {
		name     string
		emails   []oauth.Email
		expected bool
	}{
		{
			name:     "Exact match, verified",
			emails:   []oauth.Email{{Address: "committee@example.com", Verified: true}},
			expected: true,
		},
		{
			name:     "Case-insensitive match, verified",
			emails:   []oauth.Email{{Address: "Committee@Example.COM", Verified: true}},
			expected: true,
		},
		{
			name:     "Matching address but not verified",
			emails:   []oauth.Email{{Address: "committee@example.com", Verified: false}},
			expected: false,
		},
		{
			name: "Match among multiple addresses",
			emails: []oauth.Email{
				{Address: "personal@example.com", Verified: true},
				{Address: "committee@example.com", Verified: true},
			},
			expected: true,
		},
		{
			name:     "No matching address",
			emails:   []oauth.Email{{Address: "someone-else@example.com", Verified: true}},
			expected: false,
		},
		{
			name:     "No addresses at all",
			emails:   nil,
			expected: false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := New(allowedEmail)
			got := p.Authorized(oauth.Identity{ID: 1, Login: "mockuser", Emails: tc.emails})
			require.Equal(t, tc.expected, got, "Wrong authorization result")
		})
	}
}
