// Package handler implements the REST handlers that drive the OAuth flow,
// session verification and the completion-API proxy.
package handler

import (
	"net/http"
	"time"

	"github.com/umhc/auth-server/internal/anthropic"
	"github.com/umhc/auth-server/internal/config"
	"github.com/umhc/auth-server/internal/policy"
	"github.com/umhc/auth-server/internal/utils/errutils"
	"github.com/umhc/auth-server/internal/utils/httputils"
	"github.com/umhc/auth-server/pkg/oauth"
	"github.com/umhc/auth-server/pkg/session"
)

// Missing required config values are reported with distinct messages so the
// operator can tell which one is absent.
const (
	msgNoClientID     = "GitHub client ID not configured"
	msgNoClientSecret = "GitHub client secret not configured"
	msgNoAllowedEmail = "Committee email not configured"
	msgNoJWTSecret    = "JWT secret not configured"
)

// Handler encapsulates all REST handlers.
type Handler struct {
	config   config.Config
	provider oauth.Provider
	policy   policy.Policy
	sessions *session.Codec
	claude   *anthropic.Client
}

// NewHandler creates a new Handler instance.
func NewHandler(conf config.Config, provider oauth.Provider, sessions *session.Codec, claude *anthropic.Client) *Handler {
	return &Handler{
		config:   conf,
		provider: provider,
		policy:   policy.New(conf.Auth.AllowedEmail),
		sessions: sessions,
		claude:   claude,
	}
}

// authConfigError returns the message for the first missing config value the
// OAuth callback depends on, or an empty string when all are present.
func (h *Handler) authConfigError() string {
	switch {
	case h.config.GitHub.ClientID == "":
		return msgNoClientID
	case h.config.GitHub.ClientSecret == "":
		return msgNoClientSecret
	case h.config.Auth.AllowedEmail == "":
		return msgNoAllowedEmail
	case h.config.Auth.JWTSecret == "":
		return msgNoJWTSecret
	}
	return ""
}

// NotFound handler can be used to serve any unrecognized routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httputils.WriteErr(w, errutils.NotFound())
}

// Health returns 200 if everything is running fine. The response reports
// which configs are present, never their values.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": map[string]bool{
			"hasGithubClientId":     h.config.GitHub.ClientID != "",
			"hasGithubClientSecret": h.config.GitHub.ClientSecret != "",
			"hasJwtSecret":          h.config.Auth.JWTSecret != "",
			"hasAllowedEmail":       h.config.Auth.AllowedEmail != "",
			"hasClientUrl":          h.config.Auth.ClientURL != "",
		},
	}
	httputils.Write(w, http.StatusOK, nil, info)
}
