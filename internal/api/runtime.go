package api

import (
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/infrastructure"
	"github.com/JaimeStill/emoclassify/internal/pipeline"
	"github.com/JaimeStill/emoclassify/internal/records"
	"github.com/JaimeStill/emoclassify/internal/runs"
)

// Runtime extends Infrastructure with the systems the API handlers use.
// Runs is nil when no database is configured.
type Runtime struct {
	*infrastructure.Infrastructure
	Config   *config.Config
	Pipeline *pipeline.Service
	Records  *records.Store
	Runs     runs.System
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	rt := &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Oracle:    infra.Oracle,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Config:   cfg,
		Pipeline: pipeline.New(infra.Oracle, cfg, logger),
		Records:  records.New(infra.Storage, logger),
	}

	if infra.Database != nil {
		rt.Runs = runs.NewRepository(infra.Database.Pool(), logger, cfg.API.Pagination)
	}

	return rt
}
