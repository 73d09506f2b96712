// Package api assembles the HTTP API module: classification endpoints and,
// when a database is configured, run history.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/infrastructure"
	"github.com/JaimeStill/emoclassify/pkg/auth"
	"github.com/JaimeStill/emoclassify/pkg/middleware"
	"github.com/JaimeStill/emoclassify/pkg/module"
	"github.com/JaimeStill/emoclassify/pkg/routes"
)

// NewModule creates the API module mounted at cfg.API.BasePath. When
// [api.auth] is configured the token verifier is built here, so only the
// HTTP surface depends on the issuer.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	mux := http.NewServeMux()
	groups := []routes.Group{newClassifyHandler(runtime).routes()}
	if runtime.Runs != nil {
		groups = append(groups, runtime.Runs.Handler().Routes())
	}
	routes.Register(mux, groups...)

	for _, g := range groups {
		runtime.Logger.Info("routes registered", "prefix", cfg.API.BasePath, "patterns", g.Patterns())
	}

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))
	if cfg.API.Auth.Enabled() {
		verifier, err := auth.NewVerifier(infra.Lifecycle.Context(), &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(auth.Middleware(verifier, runtime.Logger))
	}
	m.Use(middleware.MaxBytes(cfg.API.MaxBodySizeBytes()))

	return m, nil
}
