package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JaimeStill/emoclassify/pkg/pagination"
	"github.com/JaimeStill/emoclassify/pkg/query"
	"github.com/JaimeStill/emoclassify/pkg/repository"
)

var projection = query.NewProjection("runs").
	Project("id", "id").
	Project("mode", "mode").
	Project("classifier_set", "classifier_set").
	Project("aggregation", "aggregation").
	Project("avg_num_chunks", "avg_num_chunks").
	Project("model", "model").
	Project("conversations", "conversations").
	Project("started_at", "started_at").
	Project("completed_at", "completed_at")

var runColumns = projection.Columns()

type repo struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	pagination pagination.Config
}

// NewRepository creates a run System backed by pool.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger, cfg pagination.Config) System {
	return &repo{
		pool:       pool,
		logger:     logger.With("system", "runs"),
		pagination: cfg,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Record(ctx context.Context, run Run, results []json.RawMessage) error {
	_, err := repository.WithTx(ctx, r.pool, func(tx pgx.Tx) (int64, error) {
		err := repository.ExecExpectOne(ctx, tx,
			`INSERT INTO runs (`+runColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID, run.Mode, run.ClassifierSet, run.Aggregation, run.AvgNumChunks,
			run.Model, run.Conversations, run.StartedAt, run.CompletedAt,
		)
		if err != nil {
			return 0, err
		}

		rows := make([][]any, len(results))
		for i, res := range results {
			rows[i] = []any{run.ID, i, []byte(res)}
		}

		return tx.CopyFrom(ctx,
			pgx.Identifier{"run_results"},
			[]string{"run_id", "position", "result"},
			pgx.CopyFromRows(rows),
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "run recorded", "id", run.ID, "mode", run.Mode, "results", len(results))
	return nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Detail, error) {
	run, err := repository.QueryOne(ctx, r.pool,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`,
		[]any{id}, scanRun,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	results, err := repository.QueryMany(ctx, r.pool,
		`SELECT result FROM run_results WHERE run_id = $1 ORDER BY position`,
		[]any{id}, scanResult,
	)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	return &Detail{Run: run, Results: results}, nil
}

func (r *repo) List(ctx context.Context, page pagination.Request, filters Filters) (*pagination.Result[Run], error) {
	page.Normalize(r.pagination)

	b := query.NewBuilder(projection, query.SortField{Field: "started_at", Descending: true}).
		WhereEquals("mode", filters.Mode).
		WhereEquals("classifier_set", filters.ClassifierSet).
		WhereEquals("model", filters.Model).
		OrderBy(filters.Sort)

	countSQL, countArgs, err := b.BuildCount()
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs, err := b.BuildPage(page.PageSize, page.Offset())
	if err != nil {
		return nil, err
	}

	items, err := repository.QueryMany(ctx, r.pool, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	result := pagination.NewResult(items, total, page)
	return &result, nil
}

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.Mode, &run.ClassifierSet, &run.Aggregation, &run.AvgNumChunks,
		&run.Model, &run.Conversations, &run.StartedAt, &run.CompletedAt,
	)
	return run, err
}

func scanResult(row pgx.Row) (json.RawMessage, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
