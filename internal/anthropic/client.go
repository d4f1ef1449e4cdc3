// Package anthropic is a thin client for the Anthropic messages endpoint.
//
// The request and response body shapes are dictated by the external API and
// are passed through mostly untouched.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// DefaultBaseURL is the public Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	messagesPath = "/v1/messages"
	apiVersion   = "2023-06-01"
)

// Client calls the Anthropic messages endpoint.
type Client struct {
	baseURL string
	// apiKey is the default key, used when the caller does not provide one.
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. An empty baseURL selects the public endpoint.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: &http.Client{}}
}

// HasDefaultKey reports whether the client was configured with an API key.
func (c *Client) HasDefaultKey() bool {
	return c.apiKey != ""
}

// Message is a single conversation turn. Content is kept opaque because its
// shape (plain string or content-part array) belongs to the external API.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MessagesRequest is the upstream request body.
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// Usage is the token usage reported by the upstream API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ContentBlock is one block of the upstream response content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MessagesResponse is the upstream response body.
type MessagesResponse struct {
	Content []ContentBlock `json:"content"`
	Usage   Usage          `json:"usage"`
}

// APIError is returned when the upstream API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error makes APIError implement the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API failed with status %d: %s", e.StatusCode, e.Message)
}

// apiErrorBody is the error payload shape of the upstream API.
type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage executes a messages call. A non-empty apiKey overrides the
// client's configured key.
func (c *Client) CreateMessage(ctx context.Context, apiKey string, request MessagesRequest) (MessagesResponse, error) {
	if apiKey == "" {
		apiKey = c.apiKey
	}

	bodyBytes, err := json.Marshal(request)
	if err != nil {
		return MessagesResponse{}, fmt.Errorf("error in json.Marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return MessagesResponse{}, fmt.Errorf("error in http.NewRequestWithContext call: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return MessagesResponse{}, fmt.Errorf("error in httpClient.Do call: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			resBody = []byte("error in io.ReadAll call: " + err.Error())
		}
		slog.ErrorContext(ctx, "anthropic API request failed", "code", res.StatusCode, "body", string(resBody))

		// Surface the upstream error message when the payload is parseable.
		apiErr := &APIError{StatusCode: res.StatusCode, Message: string(resBody)}
		var parsed apiErrorBody
		if err := json.Unmarshal(resBody, &parsed); err == nil && parsed.Error.Message != "" {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		}
		return MessagesResponse{}, apiErr
	}

	var response MessagesResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return MessagesResponse{}, fmt.Errorf("error in json Decode call: %w", err)
	}

	return response, nil
}
