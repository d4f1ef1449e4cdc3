package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/umhc/auth-server/internal/state"
	"github.com/umhc/auth-server/internal/utils/httputils"
	"github.com/umhc/auth-server/pkg/session"
)

// Pages on the client that the callback redirects to.
const (
	successPagePath = "/admin-dashboard.html"
	errorPagePath   = "/admin-login.html"
)

// User-visible failure messages. Kept generic on purpose: upstream details
// go to the logs, never to the redirect URL.
const (
	msgMissingParams       = "Missing OAuth parameters"
	msgInvalidState        = "Invalid OAuth state - security check failed"
	msgExchangeFailed      = "Token exchange failed"
	msgIdentityFetchFailed = "Failed to fetch user information"
	msgNotCommitteeMember  = "Access denied: Only committee members can access admin features"
	msgSessionIssueFailed  = "Authentication failed"
)

// Callback handles the provider's OAuth callback. Every failure is terminal
// for the request, nothing is retried.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A missing config value fails the flow immediately, with a message
	// naming the absent value. No provider call is made.
	if msg := h.authConfigError(); msg != "" {
		slog.ErrorContext(ctx, "missing required configuration", "detail", msg)
		h.errorRedirect(w, msg)
		return
	}

	q := r.URL.Query()
	code, stateParam, errAuth := q.Get("code"), q.Get("state"), q.Get("error")

	// If this value is not empty, the flow has failed from the provider's side.
	if errAuth != "" {
		slog.ErrorContext(ctx, "provider called back with error", "error", errAuth)
		h.errorRedirect(w, "GitHub OAuth error: "+errAuth)
		return
	}

	// Both the code and the state must be present.
	if code == "" || stateParam == "" {
		slog.ErrorContext(ctx, "callback is missing required parameters")
		h.errorRedirect(w, msgMissingParams)
		return
	}

	if err := validateStateParam(stateParam); err != nil {
		slog.ErrorContext(ctx, "invalid state from provider", "error", err)
		h.errorRedirect(w, msgInvalidState)
		return
	}

	// The state must decode and must be fresh, otherwise this may be a CSRF
	// attempt or a very slow provider. No provider call is made either way.
	stateToken, err := state.Decode(stateParam)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decode state from provider", "error", err)
		h.errorRedirect(w, msgInvalidState)
		return
	}
	if !stateToken.Fresh(time.Now()) {
		slog.ErrorContext(ctx, "state from provider has gone stale", "origin", stateToken.Origin)
		h.errorRedirect(w, msgInvalidState)
		return
	}

	// Convert the code sent by the provider to an access token.
	accessToken, err := h.provider.TokenFromCode(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "error in TokenFromCode call", "error", err)
		h.errorRedirect(w, msgExchangeFailed)
		return
	}

	// Fetch the profile and the verified email list.
	identity, err := h.provider.FetchIdentity(ctx, accessToken)
	if err != nil {
		slog.ErrorContext(ctx, "error in FetchIdentity call", "error", err)
		h.errorRedirect(w, msgIdentityFetchFailed)
		return
	}

	// The committee email gate. No session is issued past this point unless
	// the identity holds the allow-listed address, verified.
	if !h.policy.Authorized(identity) {
		slog.WarnContext(ctx, "identity is not authorized", "login", identity.Login, "emails", len(identity.Emails))
		h.errorRedirect(w, msgNotCommitteeMember)
		return
	}

	now := time.Now()
	// The email claim always carries the configured address, not whatever
	// casing or alias the provider reported.
	claims := session.Claims{
		UserID:    identity.ID,
		Username:  identity.Login,
		Name:      identity.Name,
		Email:     h.config.Auth.AllowedEmail,
		Role:      session.RoleCommittee,
		LoginTime: now.UTC().Format(time.RFC3339),
	}

	sessionToken, err := h.sessions.Issue(claims, now)
	if err != nil {
		slog.ErrorContext(ctx, "error in sessions.Issue call", "error", err)
		h.errorRedirect(w, msgSessionIssueFailed)
		return
	}

	slog.InfoContext(ctx, "login successful", "login", identity.Login)

	// Deliver the token to the client through the success redirect.
	params := url.Values{}
	params.Set("token", sessionToken)
	params.Set("user", identity.Login)
	params.Set("status", "success")

	redirectURL := h.config.Auth.ClientURL + successPagePath + "?" + params.Encode()
	httputils.Write(w, http.StatusFound, map[string]string{"Location": redirectURL}, nil)
}

// errorRedirect redirects the caller to the client's login page and attaches
// the given error message as a query parameter.
func (h *Handler) errorRedirect(w http.ResponseWriter, message string) {
	params := url.Values{}
	params.Set("error", message)
	params.Set("status", "error")

	redirectURL := h.config.Auth.ClientURL + errorPagePath + "?" + params.Encode()
	httputils.Write(w, http.StatusFound, map[string]string{"Location": redirectURL}, nil)
}
