package config

import "time"

// Config represents the configs model.
//
// It is loaded once at process start and injected into every component that
// needs it. No business logic reads environment variables directly.
type Config struct {
	// Application is the model of application configs.
	Application struct {
		// Name of the application.
		Name string `yaml:"name"`
		// BaseURL of the application.
		// It can be http://localhost:8080 during development and https://domain.com in production.
		// The OAuth provider calls back on <base_url>/api/auth/callback.
		BaseURL string `yaml:"base_url"`
	} `yaml:"application"`

	// HTTPServer is the model of the HTTP Server configs.
	HTTPServer struct {
		// Addr is the address of the HTTP server.
		Addr string `yaml:"addr"`
	} `yaml:"http_server"`

	// Logger is the model of the application logger configs.
	Logger struct {
		// Level of the logger.
		Level string `yaml:"level"`
		// Pretty is a flag that dictates whether the log output should be pretty (human-readable).
		Pretty bool `yaml:"pretty"`
	} `yaml:"logger"`

	// GitHub OAuth related configs.
	GitHub struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		// Scopes for the authorization request. "user:email" is required to
		// read the verified email list.
		Scopes string `yaml:"scopes"`
	} `yaml:"github"`

	// Auth holds session issuance configs.
	Auth struct {
		// JWTSecret signs session tokens. Must be of sufficient entropy.
		JWTSecret string `yaml:"jwt_secret"`
		// AllowedEmail is the single committee email address that gates all
		// authorization decisions.
		AllowedEmail string `yaml:"allowed_email"`
		// ClientURL is the base URL of the frontend that receives the
		// post-login redirects.
		ClientURL string `yaml:"client_url"`
		// SessionTTL is the session token lifetime.
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`

	// Anthropic holds the completion-API proxy configs.
	Anthropic struct {
		// APIKey is the default downstream key. Callers may override it per request.
		APIKey string `yaml:"api_key"`
		// BaseURL of the Anthropic API. Defaults to the public endpoint.
		BaseURL string `yaml:"base_url"`
	} `yaml:"anthropic"`
}

// Load loads and returns the config value.
func Load() Config {
	return loadWithViper()
}

// LoadMock provides a mock instance of the config for testing purposes.
func LoadMock() Config {
	cfg := Config{}

	cfg.Application.Name = "example-application"
	cfg.Application.BaseURL = "http://localhost:8080"
	cfg.HTTPServer.Addr = "localhost:8080"

	cfg.Logger.Level = "debug"
	cfg.Logger.Pretty = true

	cfg.GitHub.ClientID = "mockClientID"
	cfg.GitHub.ClientSecret = "mockClientSecret"
	cfg.GitHub.Scopes = "user:email"

	cfg.Auth.JWTSecret = "mock-jwt-secret-of-sufficient-entropy"
	cfg.Auth.AllowedEmail = "committee@example.com"
	cfg.Auth.ClientURL = "https://client.example.com"
	cfg.Auth.SessionTTL = 24 * time.Hour

	return cfg
}
