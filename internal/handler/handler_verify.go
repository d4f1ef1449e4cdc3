package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/umhc/auth-server/internal/utils/httputils"
	"github.com/umhc/auth-server/pkg/session"
)

// verifyRequest is the body accepted by the Verify handler.
type verifyRequest struct {
	Token string `json:"token"`
}

// verifyUser is the user object embedded in a successful verify response.
type verifyUser struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	LoginTime string `json:"loginTime"`
}

// verifyResponse is the body returned by the Verify handler.
type verifyResponse struct {
	Valid     bool        `json:"valid"`
	User      *verifyUser `json:"user,omitempty"`
	ExpiresAt int64       `json:"expiresAt,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Verify checks a presented session token and returns its claims.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Verification is impossible without the signing secret.
	if h.config.Auth.JWTSecret == "" {
		slog.ErrorContext(ctx, "jwt secret is not configured")
		httputils.Write(w, http.StatusInternalServerError, nil, verifyResponse{Valid: false, Error: msgNoJWTSecret})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		slog.ErrorContext(ctx, "verify request has no token")
		httputils.Write(w, http.StatusBadRequest, nil, verifyResponse{Valid: false, Error: "No token provided"})
		return
	}

	if err := validateTokenParam(req.Token); err != nil {
		slog.ErrorContext(ctx, "verify request token is invalid", "error", err)
		httputils.Write(w, http.StatusUnauthorized, nil, verifyResponse{Valid: false, Error: "Invalid token"})
		return
	}

	claims, err := h.sessions.Verify(req.Token, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "token verification failed", "error", err)

		message := "Invalid token"
		if errors.Is(err, session.ErrExpired) {
			message = "Token has expired"
		}
		httputils.Write(w, http.StatusUnauthorized, nil, verifyResponse{Valid: false, Error: message})
		return
	}

	httputils.Write(w, http.StatusOK, nil, verifyResponse{
		Valid: true,
		User: &verifyUser{
			UserID:    claims.UserID,
			Username:  claims.Username,
			Name:      claims.Name,
			Email:     claims.Email,
			Role:      claims.Role,
			LoginTime: claims.LoginTime,
		},
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}
