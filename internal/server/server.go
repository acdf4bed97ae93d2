package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elskow/auth-infra/internal/api"
	"github.com/elskow/auth-infra/internal/auth"
	"github.com/elskow/auth-infra/internal/authn"
	"github.com/elskow/auth-infra/internal/config"
	"github.com/elskow/auth-infra/internal/users"
)

type Server struct {
	config *config.AppConfig
	log    *zap.Logger
	http   *http.Server
}

type Params struct {
	fx.In

	Config       *config.AppConfig
	Logger       *zap.Logger
	UsersHandler *users.Handler
	AuthHandler  *auth.Handler
	Middleware   *authn.Middleware
}

func isProtectedEndpoint(pattern string) bool {
	isPublic, exists := api.PublicEndpoints[pattern]
	return !exists || !isPublic
}

func NewServer(p Params) *Server {
	mux := http.NewServeMux()
	for pattern, handler := range routes(p.UsersHandler, p.AuthHandler) {
		// Protected endpoints reject anonymous requests before the handler
		if isProtectedEndpoint(pattern) {
			handler = p.Middleware.Require(handler)
		}
		mux.Handle(pattern, handler)
	}

	httpServer := &http.Server{
		Addr: net.JoinHostPort(p.Config.Server.Host, p.Config.Server.Port),
		// Every request gets its identity resolved exactly once
		Handler:           p.Middleware.Resolve(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		config: p.Config,
		log:    p.Logger,
		http:   httpServer,
	}
}

func routes(usersHandler *users.Handler, authHandler *auth.Handler) map[string]http.Handler {
	return map[string]http.Handler{
		api.UserCreate:   http.HandlerFunc(usersHandler.Create),
		api.UserRetrieve: http.HandlerFunc(usersHandler.Retrieve),
		api.UserUpdate:   http.HandlerFunc(usersHandler.Update),
		api.UserDelete:   http.HandlerFunc(usersHandler.Delete),

		api.AuthLogin:    http.HandlerFunc(authHandler.Login),
		api.AuthRetrieve: http.HandlerFunc(authHandler.Retrieve),
		api.AuthTouch:    http.HandlerFunc(authHandler.Touch),
		api.AuthLogout:   http.HandlerFunc(authHandler.Logout),

		api.ConfIssue:  http.HandlerFunc(authHandler.IssueConfirmation),
		api.ConfRedeem: http.HandlerFunc(authHandler.RedeemConfirmation),
	}
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		zap.String("address", s.http.Addr),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddDuration("session_token_ttl", config.Auth.SessionTokenTTL)
		enc.AddDuration("confirm_token_ttl", config.Auth.ConfirmTokenTTL)
		enc.AddDuration("token_sweep_period", config.Auth.TokenSweepPeriod)
		return nil
	})
}

func (s *Server) Stop() {
	s.log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Error("failed to shut down HTTP server cleanly", zap.Error(err))
	}
}
