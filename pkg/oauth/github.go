package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const (
	// Source: https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps
	githubAuthURL  = "https://github.com/login/oauth/authorize"
	githubTokenURL = "https://github.com/login/oauth/access_token"
	// Base URL of the GitHub REST API, used for the profile and email calls.
	githubAPIBaseURL = "https://api.github.com"
)

// githubUserAgent is sent with every GitHub API call. GitHub rejects
// requests without a User-Agent header.
const githubUserAgent = "umhc-auth-server"

// parsedGithubAuthURL removes the need to repeatedly parse the auth URL.
var parsedGithubAuthURL = mustParseURL(githubAuthURL)

// GitHub implements the Provider interface for GitHub.
//
// GitHub is plain OAuth2, not OIDC: the code exchange yields an opaque
// access token and the identity is fetched from the REST API afterwards.
type GitHub struct {
	// clientID of your application.
	clientID string
	// clientSecret for your application.
	clientSecret string
	// callbackURL is the URL that GitHub will hit after the user has authenticated.
	callbackURL string
	// scopes for the request. "user:email" is needed to list verified emails.
	scopes string

	// tokenURL and apiBaseURL default to the public GitHub endpoints and are
	// only overridden in tests.
	tokenURL   string
	apiBaseURL string

	httpClient *http.Client
}

// githubTokenResponse is the body schema of the response returned by GitHub's
// code-to-token endpoint. GitHub reports failures with a 200 status and an
// error payload, so the error fields are part of the same schema.
type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// githubUserResponse is the body schema of GitHub's /user endpoint.
type githubUserResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// NewGitHub instantiates a new GitHub provider instance.
func NewGitHub(clientID, clientSecret, callbackURL, scopes string) *GitHub {
	return &GitHub{
		clientID:     clientID,
		clientSecret: clientSecret,
		callbackURL:  callbackURL,
		scopes:       scopes,
		tokenURL:     githubTokenURL,
		apiBaseURL:   githubAPIBaseURL,
		httpClient:   &http.Client{},
	}
}

func (g *GitHub) Name() string {
	return "github"
}

func (g *GitHub) GetAuthURL(ctx context.Context, state string) string {
	var u = &url.URL{}
	// Copy the auth URL value into a local pointer. This must not modify the original URL variable.
	*u = *parsedGithubAuthURL

	// Add all query parameters.
	q := u.Query()
	q.Set("client_id", g.clientID)
	q.Set("scope", g.scopes)
	q.Set("redirect_uri", g.callbackURL)
	q.Set("state", state)

	u.RawQuery = q.Encode()
	return u.String()
}

func (g *GitHub) TokenFromCode(ctx context.Context, code string) (string, error) {
	// Request body.
	body := map[string]any{
		"client_id":     g.clientID,
		"client_secret": g.clientSecret,
		"code":          code,
	}

	// Marshal body to use as an io.Reader.
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal call: %w", err)
	}

	// Form the HTTP request.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("error in http.NewRequestWithContext call: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Without this header GitHub responds with form-encoded data.
	req.Header.Set("Accept", "application/json")

	// Execute request.
	res, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error in httpClient.Do call: %w", err)
	}
	// Close response body upon return.
	defer func() { _ = res.Body.Close() }()

	// Check if the request failed.
	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Decode response body only for logging.
		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			resBody = []byte("error in io.ReadAll call: " + err.Error())
		}
		slog.ErrorContext(ctx, "token exchange request failed", "code", res.StatusCode, "body", string(resBody))
		return "", &ProviderError{Op: "token exchange", StatusCode: res.StatusCode}
	}

	// Decode the response.
	tokenResponse := &githubTokenResponse{}
	if err := json.NewDecoder(res.Body).Decode(tokenResponse); err != nil {
		return "", fmt.Errorf("error in json Decode call: %w", err)
	}

	// GitHub reports errors like a bad or expired code with a 200 status.
	if tokenResponse.Error != "" {
		detail := tokenResponse.ErrorDescription
		if detail == "" {
			detail = tokenResponse.Error
		}
		return "", &ProviderError{Op: "token exchange", StatusCode: res.StatusCode, Detail: detail}
	}

	if tokenResponse.AccessToken == "" {
		return "", &ProviderError{Op: "token exchange", StatusCode: res.StatusCode, Detail: "empty access token"}
	}

	return tokenResponse.AccessToken, nil
}

func (g *GitHub) FetchIdentity(ctx context.Context, accessToken string) (Identity, error) {
	// Profile first, then the verified email list. Either failure aborts,
	// a partial identity is never returned.
	user, err := g.fetchUser(ctx, accessToken)
	if err != nil {
		return Identity{}, err
	}

	emails, err := g.fetchEmails(ctx, accessToken)
	if err != nil {
		return Identity{}, err
	}

	return Identity{ID: user.ID, Login: user.Login, Name: user.Name, Emails: emails}, nil
}

// fetchUser fetches the user's profile from the GitHub API.
func (g *GitHub) fetchUser(ctx context.Context, accessToken string) (githubUserResponse, error) {
	var user githubUserResponse
	if err := g.getJSON(ctx, "/user", accessToken, &user); err != nil {
		return githubUserResponse{}, err
	}
	return user, nil
}

// fetchEmails fetches the user's email list from the GitHub API.
func (g *GitHub) fetchEmails(ctx context.Context, accessToken string) ([]Email, error) {
	var emails []Email
	if err := g.getJSON(ctx, "/user/emails", accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// getJSON executes an authenticated GET against the GitHub API and decodes
// the response into target.
func (g *GitHub) getJSON(ctx context.Context, path, accessToken string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error in http.NewRequestWithContext call: %w", err)
	}

	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", githubUserAgent)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error in httpClient.Do call: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		slog.ErrorContext(ctx, "github API request failed", "path", path, "code", res.StatusCode)
		return &ProviderError{Op: "GET " + path, StatusCode: res.StatusCode}
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("error in json Decode call: %w", err)
	}

	return nil
}

// mustParseURL parses the given string as a URL. It panics upon error.
func mustParseURL(u string) *url.URL {
	parsed, err := url.Parse(u)
	if err != nil {
		panic("error in url.Parse call: " + err.Error())
	}
	return parsed
}
