package main

import (
	"os"

	"github.com/umhc/auth-server/internal/anthropic"
	"github.com/umhc/auth-server/internal/config"
	"github.com/umhc/auth-server/internal/handler"
	"github.com/umhc/auth-server/internal/http"
	"github.com/umhc/auth-server/internal/middleware"
	"github.com/umhc/auth-server/pkg/logger"
	"github.com/umhc/auth-server/pkg/oauth"
	"github.com/umhc/auth-server/pkg/session"
)

// Fixed values for the standard claims of every session token.
const (
	sessionIssuer   = "umhc-auth-server"
	sessionAudience = "umhc-finance-system"
)

func main() {
	// Initialize basic dependencies.
	conf := config.Load()
	logger.Init(os.Stdout, conf.Logger.Level, conf.Logger.Pretty)

	// The identity provider calls back on this URL after authentication.
	callbackURL := conf.Application.BaseURL + "/api/auth/callback"
	provider := oauth.NewGitHub(conf.GitHub.ClientID, conf.GitHub.ClientSecret, callbackURL, conf.GitHub.Scopes)

	sessions := session.NewCodec(conf.Auth.JWTSecret, sessionIssuer, sessionAudience, conf.Auth.SessionTTL)
	claude := anthropic.NewClient(conf.Anthropic.BaseURL, conf.Anthropic.APIKey)

	// Initialize the HTTP server.
	server := &http.Server{
		Config:     conf,
		Middleware: middleware.Middleware{},
		Handler:    handler.NewHandler(conf, provider, sessions, claude),
	}

	// This internally calls ListenAndServe.
	// This is a blocking call and will panic if the server is unable to start.
	server.Start()
}
