// Package infrastructure assembles the shared systems every entry point needs:
// lifecycle coordination, logging, the oracle client, and the optional
// database and blob storage.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/oracle"
	"github.com/JaimeStill/emoclassify/pkg/database"
	"github.com/JaimeStill/emoclassify/pkg/lifecycle"
	"github.com/JaimeStill/emoclassify/pkg/storage"
)

// Infrastructure holds the systems shared by the CLI and the HTTP service.
// Database and Storage are nil when not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Oracle    *oracle.Client
	Database  database.System
	Storage   storage.System
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	completer oracle.Completer
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithCompleter replaces the OpenAI completer.
func WithCompleter(c oracle.Completer) Option {
	return func(o *options) { o.completer = c }
}

// New creates every system from cfg without starting them; call Start
// separately. The one oracle client built here is shared by every classifier.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Infrastructure, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger := slog.New(slog.NewTextHandler(o.logOutput, nil))

	completer := o.completer
	if completer == nil {
		c, err := oracle.NewOpenAI(&cfg.Oracle, logger)
		if err != nil {
			return nil, fmt.Errorf("oracle init failed: %w", err)
		}
		completer = c
	}

	infra := &Infrastructure{
		Lifecycle: lifecycle.New(ctx),
		Logger:    logger,
		Oracle:    oracle.New(completer, &cfg.Oracle, logger),
	}

	if cfg.Database.Enabled() {
		db, err := database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		infra.Database = db
	}

	if cfg.Storage.Enabled() {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	}

	return infra, nil
}

// Start registers the configured systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}
