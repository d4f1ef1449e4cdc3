package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/umhc/auth-server/internal/anthropic"
	"github.com/umhc/auth-server/internal/utils/errutils"
	"github.com/umhc/auth-server/internal/utils/httputils"
)

// Defaults applied when the caller leaves the corresponding field empty.
const (
	defaultModel       = "claude-3-5-sonnet-20241022"
	defaultMaxTokens   = 8000
	defaultTemperature = 0.1
)

// proxyRequest is the body accepted by the ProxyCall handler. MessageContent
// is kept opaque: its shape belongs to the downstream API.
type proxyRequest struct {
	Prompt         string          `json:"prompt"`
	MessageContent json.RawMessage `json:"messageContent"`
	Model          string          `json:"model"`
	MaxTokens      int             `json:"maxTokens"`
	Temperature    *float64        `json:"temperature"`
	APIKey         string          `json:"apiKey"`
}

// proxyResponse is the body returned on a successful proxy call.
type proxyResponse struct {
	Success bool            `json:"success"`
	Content string          `json:"content"`
	Usage   anthropic.Usage `json:"usage"`
	Model   string          `json:"model"`
}

// ProxyCall gates a completion-API call behind a valid session token and
// forwards the payload to the downstream endpoint.
func (h *Handler) ProxyCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Token verification and the email gate both depend on these values.
	var configMsg string
	switch {
	case h.config.Auth.JWTSecret == "":
		configMsg = msgNoJWTSecret
	case h.config.Auth.AllowedEmail == "":
		configMsg = msgNoAllowedEmail
	}
	if configMsg != "" {
		slog.ErrorContext(ctx, "missing required configuration", "detail", configMsg)
		httputils.WriteErr(w, errutils.InternalServerError().WithReasonStr(configMsg))
		return
	}

	// The session token travels as a bearer token.
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		slog.ErrorContext(ctx, "proxy request has no bearer token")
		httputils.WriteErr(w, errutils.Unauthorized().WithReasonStr("No valid auth token provided"))
		return
	}

	claims, err := h.sessions.Verify(strings.TrimPrefix(authHeader, "Bearer "), time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "proxy token verification failed", "error", err)
		httputils.WriteErr(w, errutils.Unauthorized().WithReasonStr("Invalid auth token"))
		return
	}

	// Defense in depth: a token could have been issued before a policy
	// change, so the email claim is checked again.
	if !strings.EqualFold(claims.Email, h.config.Auth.AllowedEmail) {
		slog.WarnContext(ctx, "proxy request from non-committee session", "username", claims.Username)
		httputils.WriteErr(w, errutils.Forbidden().WithReasonStr("Committee access required"))
		return
	}

	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.ErrorContext(ctx, "failed to decode proxy request body", "error", err)
		httputils.WriteErr(w, errutils.BadRequest().WithReasonStr("Invalid request body"))
		return
	}

	// The caller provides either a plain prompt or a full content-part
	// array. Both become a single user message.
	var content json.RawMessage
	switch {
	case len(req.MessageContent) > 0 && string(req.MessageContent) != "null":
		content = req.MessageContent
	case req.Prompt != "":
		// A plain prompt becomes a JSON string.
		content, _ = json.Marshal(req.Prompt)
	default:
		httputils.WriteErr(w, errutils.BadRequest().WithReasonStr("Either prompt or messageContent is required"))
		return
	}

	// A key must be available from the request or the configuration.
	if req.APIKey == "" && !h.claude.HasDefaultKey() {
		httputils.WriteErr(w, errutils.BadRequest().WithReasonStr("API key required. Please provide apiKey in request body."))
		return
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	upstreamReq := anthropic.MessagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []anthropic.Message{{Role: "user", Content: content}},
	}

	result, err := h.claude.CreateMessage(ctx, req.APIKey, upstreamReq)
	if err != nil {
		slog.ErrorContext(ctx, "error in CreateMessage call", "error", err)

		// Upstream errors surface with the upstream status and message.
		apiErr := &anthropic.APIError{}
		if errors.As(err, &apiErr) {
			httputils.Write(w, apiErr.StatusCode, nil, map[string]string{"error": apiErr.Message, "type": apiErr.Type})
			return
		}
		httputils.WriteErr(w, errutils.InternalServerError())
		return
	}

	var text string
	if len(result.Content) > 0 {
		text = result.Content[0].Text
	}

	slog.InfoContext(ctx, "proxy call successful", "model", model,
		"input_tokens", result.Usage.InputTokens, "output_tokens", result.Usage.OutputTokens)

	httputils.Write(w, http.StatusOK, nil, proxyResponse{
		Success: true,
		Content: text,
		Usage:   result.Usage,
		Model:   model,
	})
}
