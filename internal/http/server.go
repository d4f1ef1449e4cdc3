// Package http implements the HTTP server of this application.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/umhc/auth-server/internal/config"
	"github.com/umhc/auth-server/internal/handler"
	"github.com/umhc/auth-server/internal/middleware"
	"github.com/umhc/auth-server/internal/utils/signals"
)

// Server is the HTTP server of this application.
type Server struct {
	Config     config.Config
	Middleware middleware.Middleware
	Handler    *handler.Handler
	httpServer *http.Server
}

// Start sets up all the dependencies and routes on the server, and calls ListenAndServe on it.
func (s *Server) Start() {
	// Create the HTTP server.
	s.httpServer = &http.Server{
		Addr:              s.Config.HTTPServer.Addr,
		ReadHeaderTimeout: time.Minute,
		Handler:           s.getHandler(),
	}

	// Gracefully shut down upon interruption.
	signals.OnSignal(func(_ os.Signal) {
		slog.Info("interruption detected, gracefully shutting down the server")
		// Graceful shutdown.
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			slog.Error("failed to gracefully shutdown the server", "err", err)
		}
	})

	slog.Info("starting http server", "name", s.Config.Application.Name, "addr", s.Config.HTTPServer.Addr)
	// Start the HTTP server.
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error in ListenAndServe call", "err", err)
		panic(err)
	}
}

// getHandler attaches middleware and REST methods to the router.
func (s *Server) getHandler() http.Handler {
	router := mux.NewRouter()

	// Attach middleware.
	router.Use(s.Middleware.Recovery)
	router.Use(s.Middleware.CORS)
	router.Use(s.Middleware.Security)
	router.Use(s.Middleware.AccessLogger)

	// Health route.
	router.HandleFunc("/api/health", s.Handler.Health).Methods(http.MethodGet)

	// OAuth flow routes.
	router.HandleFunc("/api/auth/begin", s.Handler.Begin).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/callback", s.Handler.Callback).Methods(http.MethodGet)

	// Session token verification route.
	router.HandleFunc("/api/auth/verify", s.Handler.Verify).Methods(http.MethodPost)

	// Completion-API proxy route.
	router.HandleFunc("/api/claude", s.Handler.ProxyCall).Methods(http.MethodPost)

	// Handle 404. This also catches preflight requests for the routes above,
	// which the CORS middleware intercepts before this handler runs.
	router.PathPrefix("/").HandlerFunc(s.Handler.NotFound)

	return router
}
