package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/umhc/auth-server/pkg/oauth"
)

// mockProvider is a mock implementation of the oauth.Provider interface.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "github"
}

func (m *mockProvider) GetAuthURL(ctx context.Context, state string) string {
	args := m.Called(ctx, state)
	return args.String(0)
}

func (m *mockProvider) TokenFromCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) FetchIdentity(ctx context.Context, accessToken string) (oauth.Identity, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(oauth.Identity), args.Error(1)
}
