package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/config"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/infrastructure"
	"github.com/JaimeStill/emoclassify/internal/pipeline"
	"github.com/JaimeStill/emoclassify/internal/records"
	"github.com/JaimeStill/emoclassify/internal/runs"
	"github.com/JaimeStill/emoclassify/pkg/database"
)

// common holds the flags shared by classify and hierarchical.
type common struct {
	inputPath       string
	outputPath      string
	aggregationMode string
	avgNumChunks    int
	definitionsPath string
	maxConcurrent   int
	record          bool
}

func (c *common) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.inputPath, "input_path", "", "conversations JSONL (local path or blob://key)")
	f.StringVar(&c.outputPath, "output_path", "", "results JSONL (local path or blob://key)")
	f.StringVar(&c.aggregationMode, "aggregation_mode", "", "aggregation mode: raw, any, or adjusted (default from config)")
	f.IntVar(&c.avgNumChunks, "avg_num_chunks", 0, "sample size for adjusted aggregation (default from config)")
	f.StringVar(&c.definitionsPath, "definitions_path", "", "custom definitions file (JSON or YAML)")
	f.IntVar(&c.maxConcurrent, "max_concurrent", 0, "maximum simultaneous oracle calls (default from config)")
	f.BoolVar(&c.record, "record", false, "store the run in the configured database")

	cmd.MarkFlagRequired("input_path")
	cmd.MarkFlagRequired("output_path")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("avg_num_chunks") && c.avgNumChunks <= 0 {
			return fmt.Errorf("%w: --avg_num_chunks %d", aggregation.ErrInvalidSampleSize, c.avgNumChunks)
		}
		return nil
	}
}

// session is a loaded config plus started infrastructure for one command.
type session struct {
	cfg   *config.Config
	infra *infrastructure.Infrastructure
	store *records.Store
	runs  runs.System
	agg   aggregation.Aggregator
}

func (a *app) open(ctx context.Context, c *common) (*session, error) {
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return nil, err
	}
	if c.maxConcurrent > 0 {
		cfg.Oracle.MaxConcurrent = c.maxConcurrent
	}

	agg, err := cfg.Aggregation.Resolve(c.aggregationMode, c.avgNumChunks)
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(ctx, cfg, a.infraOpts...)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:   cfg,
		infra: infra,
		store: records.New(infra.Storage, infra.Logger),
		agg:   agg,
	}

	if c.record {
		if infra.Database == nil {
			s.close()
			return nil, fmt.Errorf("--record: %w", database.ErrNotConfigured)
		}
		s.runs = runs.NewRepository(infra.Database.Pool(), infra.Logger, cfg.API.Pagination)
	}

	if err := infra.Start(); err != nil {
		s.close()
		return nil, err
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		s.close()
		return nil, fmt.Errorf("startup failed: %w", err)
	}

	return s, nil
}

func (s *session) close() {
	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		s.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func (s *session) pipeline() *pipeline.Service {
	return pipeline.New(s.infra.Oracle, s.cfg, s.infra.Logger)
}

// execute reads inputs, runs fn, writes results in input order, and records
// the run when requested. Nothing is written when fn fails.
func execute[T any](
	ctx context.Context,
	s *session,
	c *common,
	run runs.Run,
	fn func(context.Context, []conversation.Conversation) ([]T, error),
) error {
	start := time.Now()

	convs, err := s.store.ReadConversations(ctx, c.inputPath)
	if err != nil {
		return err
	}

	results, err := fn(ctx, convs)
	if err != nil {
		return err
	}
	run.Complete(len(convs))

	if err := records.WriteResults(ctx, s.store, c.outputPath, results); err != nil {
		return err
	}

	if s.runs != nil {
		if err := runs.Save(ctx, s.runs, run, results); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	s.infra.Logger.InfoContext(ctx, "run finished",
		"id", run.ID,
		"mode", run.Mode,
		"conversations", len(convs),
		"output", c.outputPath,
		"duration", time.Since(start),
	)
	return nil
}
