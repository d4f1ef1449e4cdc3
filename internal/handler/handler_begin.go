package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/umhc/auth-server/internal/state"
	"github.com/umhc/auth-server/internal/utils/errutils"
	"github.com/umhc/auth-server/internal/utils/httputils"
)

// beginResponse is the body returned by the Begin handler. The client is
// expected to navigate to AuthURL itself.
type beginResponse struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// Begin starts the OAuth flow by building the provider's authorization URL
// with a fresh state token embedded in it.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Without a client ID no authorization URL can be formed.
	if h.config.GitHub.ClientID == "" {
		slog.ErrorContext(ctx, "github client ID is not configured")
		httputils.WriteErr(w, errutils.InternalServerError().WithReasonStr(msgNoClientID))
		return
	}

	// Origin is carried in the state for diagnostics only.
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = h.config.Auth.ClientURL
	}

	encodedState := state.Encode(state.New(origin, time.Now()))
	authURL := h.provider.GetAuthURL(ctx, encodedState)

	slog.InfoContext(ctx, "oauth flow started", "provider", h.provider.Name())
	httputils.Write(w, http.StatusOK, nil, beginResponse{AuthURL: authURL, State: encodedState})
}
