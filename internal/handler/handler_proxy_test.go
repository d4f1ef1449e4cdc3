package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/umhc/auth-server/internal/anthropic"
	"github.com/umhc/auth-server/internal/config"
	"github.com/umhc/auth-server/pkg/session"
)

// issueTestToken issues a committee session token for use in proxy tests.
func issueTestToken(t *testing.T, conf config.Config) string {
	t.Helper()

	token, err := newTestCodec(conf).Issue(session.Claims{
		UserID:    12345,
		Username:  "mockuser",
		Email:     conf.Auth.AllowedEmail,
		Role:      session.RoleCommittee,
		LoginTime: time.Now().UTC().Format(time.RFC3339),
	}, time.Now())
	require.NoError(t, err, "Failed to issue session token")

	return token
}

func TestHandler_ProxyCall_Failures(t *testing.T) {
	conf := config.LoadMock()
	codec := newTestCodec(conf)
	token := issueTestToken(t, conf)

	// A token whose email claim is not the configured address.
	strayToken, err := codec.Issue(session.Claims{
		UserID: 67890, Username: "stray", Email: "stray@example.com", Role: session.RoleCommittee,
	}, time.Now())
	require.NoError(t, err, "Failed to issue stray token")

	for _, tc := range []struct {
		name           string
		authHeader     string
		body           string
		expectedStatus int
		expectedReason string
	}{
		{
			name:           "No authorization header",
			authHeader:     "",
			body:           `{"prompt":"hello"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedReason: "No valid auth token provided",
		},
		{
			name:           "Authorization header without bearer scheme",
			authHeader:     "Basic " + token,
			body:           `{"prompt":"hello"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedReason: "No valid auth token provided",
		},
		{
			name:           "Bearer token is garbage",
			authHeader:     "Bearer not.a.jwt",
			body:           `{"prompt":"hello"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedReason: "Invalid auth token",
		},
		{
			name:           "Bearer token carries the wrong email",
			authHeader:     "Bearer " + strayToken,
			body:           `{"prompt":"hello"}`,
			expectedStatus: http.StatusForbidden,
			expectedReason: "Committee access required",
		},
		{
			name:           "Request body is not JSON",
			authHeader:     "Bearer " + token,
			body:           "not-json",
			expectedStatus: http.StatusBadRequest,
			expectedReason: "Invalid request body",
		},
		{
			name:           "Neither prompt nor messageContent",
			authHeader:     "Bearer " + token,
			body:           `{"model":"some-model"}`,
			expectedStatus: http.StatusBadRequest,
			expectedReason: "Either prompt or messageContent is required",
		},
		{
			name:           "Null messageContent and no prompt",
			authHeader:     "Bearer " + token,
			body:           `{"messageContent":null}`,
			expectedStatus: http.StatusBadRequest,
			expectedReason: "Either prompt or messageContent is required",
		},
		{
			name:           "No API key anywhere",
			authHeader:     "Bearer " + token,
			body:           `{"prompt":"hello"}`,
			expectedStatus: http.StatusBadRequest,
			expectedReason: "API key required. Please provide apiKey in request body.",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			// Client without a default key. Nothing here reaches the network.
			claude := anthropic.NewClient("", "")
			mHandler := NewHandler(conf, &mockProvider{}, codec, claude)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/claude", bytes.NewBufferString(tc.body))
			if tc.authHeader != "" {
				r.Header.Set("Authorization", tc.authHeader)
			}

			mHandler.ProxyCall(w, r)

			require.Equal(t, tc.expectedStatus, w.Code, "Wrong status code")
			require.Contains(t, w.Body.String(), tc.expectedReason, "Wrong error reason")
		})
	}
}

func TestHandler_ProxyCall_MissingConfig(t *testing.T) {
	for _, tc := range []struct {
		name        string
		mutate      func(*config.Config)
		expectedMsg string
	}{
		{
			name:        "No JWT secret",
			mutate:      func(c *config.Config) { c.Auth.JWTSecret = "" },
			expectedMsg: msgNoJWTSecret,
		},
		{
			name:        "No committee email",
			mutate:      func(c *config.Config) { c.Auth.AllowedEmail = "" },
			expectedMsg: msgNoAllowedEmail,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			conf := config.LoadMock()
			tc.mutate(&conf)

			claude := anthropic.NewClient("", "")
			mHandler := NewHandler(conf, &mockProvider{}, newTestCodec(conf), claude)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/claude", bytes.NewBufferString(`{"prompt":"hello"}`))

			mHandler.ProxyCall(w, r)

			// A missing config value is a config error, not an auth failure.
			require.Equal(t, http.StatusInternalServerError, w.Code, "Expected 500 status code")
			require.Contains(t, w.Body.String(), tc.expectedMsg, "Wrong error reason")
		})
	}
}

func TestHandler_ProxyCall(t *testing.T) {
	conf := config.LoadMock()
	token := issueTestToken(t, conf)

	// Fake upstream endpoint. Captures the forwarded request for assertions.
	var forwarded anthropic.MessagesRequest
	var forwardedKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwardedKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forwarded), "Failed to decode forwarded body")

		response := anthropic.MessagesResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: "mock completion"}},
			Usage:   anthropic.Usage{InputTokens: 10, OutputTokens: 20},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer upstream.Close()

	claude := anthropic.NewClient(upstream.URL, "mock-default-key")
	mHandler := NewHandler(conf, &mockProvider{}, newTestCodec(conf), claude)

	body := `{"prompt":"hello there"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/claude", bytes.NewBufferString(body))
	r.Header.Set("Authorization", "Bearer "+token)

	mHandler.ProxyCall(w, r)

	require.Equal(t, http.StatusOK, w.Code, "Expected 200 status code")

	// The forwarded request must carry the defaults and the prompt as a
	// single user message.
	require.Equal(t, "mock-default-key", forwardedKey, "Wrong API key forwarded")
	require.Equal(t, defaultModel, forwarded.Model, "Wrong default model")
	require.Equal(t, defaultMaxTokens, forwarded.MaxTokens, "Wrong default max tokens")
	require.Equal(t, defaultTemperature, forwarded.Temperature, "Wrong default temperature")
	require.Len(t, forwarded.Messages, 1, "Expected exactly one message")
	require.Equal(t, "user", forwarded.Messages[0].Role, "Wrong message role")
	require.JSONEq(t, `"hello there"`, string(forwarded.Messages[0].Content), "Wrong message content")

	var response proxyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response), "Failed to decode response body")
	require.True(t, response.Success, "Expected success to be true")
	require.Equal(t, "mock completion", response.Content, "Wrong content")
	require.Equal(t, 10, response.Usage.InputTokens, "Wrong input token count")
	require.Equal(t, 20, response.Usage.OutputTokens, "Wrong output token count")
	require.Equal(t, defaultModel, response.Model, "Wrong model")
}

func TestHandler_ProxyCall_Overrides(t *testing.T) {
	conf := config.LoadMock()
	token := issueTestToken(t, conf)

	var forwarded anthropic.MessagesRequest
	var forwardedKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwardedKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forwarded), "Failed to decode forwarded body")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropic.MessagesResponse{})
	}))
	defer upstream.Close()

	// No default key. The request's own key must be accepted and forwarded.
	claude := anthropic.NewClient(upstream.URL, "")
	mHandler := NewHandler(conf, &mockProvider{}, newTestCodec(conf), claude)

	body := `{
		"messageContent": [{"type":"text","text":"structured"}],
		"model": "custom-model",
		"maxTokens": 42,
		"temperature": 0,
		"apiKey": "caller-key"
	}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/claude", bytes.NewBufferString(body))
	r.Header.Set("Authorization", "Bearer "+token)

	mHandler.ProxyCall(w, r)

	require.Equal(t, http.StatusOK, w.Code, "Expected 200 status code")

	require.Equal(t, "caller-key", forwardedKey, "Wrong API key forwarded")
	require.Equal(t, "custom-model", forwarded.Model, "Wrong model")
	require.Equal(t, 42, forwarded.MaxTokens, "Wrong max tokens")
	// An explicit zero temperature must not fall back to the default.
	require.Equal(t, 0.0, forwarded.Temperature, "Explicit zero temperature was overridden")
	require.Len(t, forwarded.Messages, 1, "Expected exactly one message")
	require.JSONEq(t, `[{"type":"text","text":"structured"}]`, string(forwarded.Messages[0].Content),
		"Wrong message content")
}

func TestHandler_ProxyCall_UpstreamError(t *testing.T) {
	conf := config.LoadMock()
	token := issueTestToken(t, conf)

	// Upstream rejects the call with a parseable error payload.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"mock rate limit"}}`))
	}))
	defer upstream.Close()

	claude := anthropic.NewClient(upstream.URL, "mock-default-key")
	mHandler := NewHandler(conf, &mockProvider{}, newTestCodec(conf), claude)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/claude", bytes.NewBufferString(`{"prompt":"hello"}`))
	r.Header.Set("Authorization", "Bearer "+token)

	mHandler.ProxyCall(w, r)

	// The upstream status and message pass through.
	require.Equal(t, http.StatusTooManyRequests, w.Code, "Expected the upstream status code")

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response), "Failed to decode response body")
	require.Equal(t, "mock rate limit", response["error"], "Wrong error message")
	require.Equal(t, "rate_limit_error", response["type"], "Wrong error type")
}
