package main

import (
	"context"
	"time"

	"github.com/JaimeStill/emoclassify/internal/api"
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/infrastructure"
)

// Server owns the infrastructure and the HTTP listener.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

// NewServer builds infrastructure and mounts the API module.
func NewServer(ctx context.Context, cfg *config.Config, opts ...infrastructure.Option) (*Server, error) {
	infra, err := infrastructure.New(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	if err := router.Mount(apiModule); err != nil {
		return nil, err
	}

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"model", cfg.Oracle.Model,
		"max_concurrent", cfg.Oracle.MaxConcurrent,
		"database", cfg.Database.Enabled(),
		"storage", cfg.Storage.Enabled(),
	)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers subsystems and begins listening. Readiness follows once
// every startup hook succeeds.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("startup failed", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown stops the listener and releases subsystems within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
