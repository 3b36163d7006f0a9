// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package server assembles the passkey-server HTTP stack: the WebAuthn
// service with its configured store, the chi router with middleware,
// and the Prometheus metrics endpoint.
package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/webauthn/http"
	"github.com/jeremyhahn/go-passkey/pkg/webauthn/store/postgres"
)

// Server is the assembled passkey HTTP server.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	http     *http.Server
	sessions *webauthn.MemorySessionCache
	pg       *postgres.Store
}

// New builds the server from configuration. The returned server owns
// its store connections; Stop releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	sessions := webauthn.NewMemorySessionCache(cfg.WebAuthn.SessionTTL)

	var credentials webauthn.CredentialStore
	var directory webauthn.UserDirectory
	var pg *postgres.Store

	switch cfg.Store.Driver {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		pg = store
		credentials = store
		directory = store
	default:
		memory := webauthn.NewMemoryUserDirectory()
		for i, user := range cfg.Users {
			memory.AddUser(user.Username, fmt.Sprintf("%d", i+1), user.DisplayName)
		}
		credentials = webauthn.NewMemoryCredentialStore()
		directory = memory
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []webauthn.Option{
		webauthn.WithLogger(logger),
		webauthn.WithMetrics(webauthn.NewMetrics(registry)),
	}
	if cfg.JWT.Enabled {
		issuer, err := newTokenIssuer(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, webauthn.WithTokenIssuer(issuer))
	}

	svc, err := webauthn.NewService(&cfg.WebAuthn, credentials, sessions, directory, opts...)
	if err != nil {
		return nil, err
	}

	handler := passkeyhttp.NewHandler(svc).WithLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/webauthn", func(r chi.Router) {
		passkeyhttp.MountChi(r, handler)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		pg:       pg,
		http: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// newTokenIssuer mints an ephemeral P-256 signing key. Tokens are
// invalidated by a restart, which suits short-lived session tokens.
func newTokenIssuer(cfg *config.Config) (webauthn.TokenIssuer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return webauthn.NewJWTIssuer(key, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TTL)
}

// Handler exposes the assembled router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start runs the HTTP listener until Stop is called. Blocks.
func (s *Server) Start() error {
	s.sessions.StartCleanup(time.Minute)
	s.logger.Info("passkey server listening",
		"address", s.cfg.Server.Address,
		"rp_id", s.cfg.WebAuthn.RPID,
		"store", s.cfg.Store.Driver)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and releases store connections.
func (s *Server) Stop(ctx context.Context) error {
	s.sessions.Stop()
	err := s.http.Shutdown(ctx)
	if s.pg != nil {
		if closeErr := s.pg.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
