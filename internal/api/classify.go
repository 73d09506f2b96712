package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/definitions"
	"github.com/JaimeStill/emoclassify/internal/oracle"
	"github.com/JaimeStill/emoclassify/internal/orchestrator"
	"github.com/JaimeStill/emoclassify/internal/pipeline"
	"github.com/JaimeStill/emoclassify/internal/records"
	"github.com/JaimeStill/emoclassify/internal/runs"
	"github.com/JaimeStill/emoclassify/pkg/auth"
	"github.com/JaimeStill/emoclassify/pkg/handlers"
	"github.com/JaimeStill/emoclassify/pkg/routes"
	"github.com/JaimeStill/emoclassify/pkg/storage"
)

// Source carries conversations inline or as a blob location, and an optional
// blob location for the results.
type Source struct {
	Conversations []conversation.Conversation `json:"conversations" validate:"required_without=InputPath"`
	InputPath     string                      `json:"input_path" validate:"omitempty,startswith=blob://"`
	OutputPath    string                      `json:"output_path" validate:"omitempty,startswith=blob://"`
}

// Aggregation overrides the configured aggregator.
type Aggregation struct {
	AggregationMode string `json:"aggregation_mode" validate:"omitempty,oneof=raw any adjusted"`
	AvgNumChunks    int    `json:"avg_num_chunks" validate:"gte=0"`
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Source
	Aggregation
	ClassifierSet string `json:"classifier_set" validate:"omitempty,oneof=v1 v1_top_level v2"`
}

// HierarchicalRequest is the body of POST /classify/hierarchical.
type HierarchicalRequest struct {
	Source
	Aggregation
	TopLevelSet string `json:"top_level_set" validate:"omitempty,oneof=v1 v1_top_level v2"`
	SubSet      string `json:"sub_set" validate:"omitempty,oneof=v1 v1_top_level v2"`
}

// Response returns results in input order. RunID is set when the run was
// recorded.
type Response[T any] struct {
	RunID   *uuid.UUID `json:"run_id,omitempty"`
	Results []T        `json:"results"`
}

type classifyHandler struct {
	rt     *Runtime
	logger *slog.Logger
}

func newClassifyHandler(rt *Runtime) *classifyHandler {
	return &classifyHandler{
		rt:     rt,
		logger: rt.Logger.With("handler", "classify"),
	}
}

func (h *classifyHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/classify",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.simple},
			{Method: "POST", Pattern: "/hierarchical", Handler: h.hierarchical},
		},
	}
}

func (h *classifyHandler) simple(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[ClassifyRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	agg, err := h.rt.Config.Aggregation.Resolve(req.AggregationMode, req.AvgNumChunks)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	opts := pipeline.SimpleOptions{ClassifierSet: req.ClassifierSet, Aggregator: agg}
	runner, err := h.rt.Pipeline.Simple(opts)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	run := runs.New(runs.ModeSimple, opts.Label(), agg, h.rt.Config.Oracle.Model)
	serve(w, r, h, req.Source, run, runner.Run)
}

func (h *classifyHandler) hierarchical(w http.ResponseWriter, r *http.Request) {
	req, err := handlers.DecodeJSON[HierarchicalRequest](r)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	agg, err := h.rt.Config.Aggregation.Resolve(req.AggregationMode, req.AvgNumChunks)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	opts := pipeline.HierarchicalOptions{
		TopLevelSet: req.TopLevelSet,
		SubSet:      req.SubSet,
		Aggregator:  agg,
	}
	runner, err := h.rt.Pipeline.Hierarchical(opts)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	run := runs.New(runs.ModeHierarchical, opts.Label(), agg, h.rt.Config.Oracle.Model)
	serve(w, r, h, req.Source, run, runner.Run)
}

type runFunc[T any] func(context.Context, []conversation.Conversation) ([]T, error)

func serve[T any](w http.ResponseWriter, r *http.Request, h *classifyHandler, src Source, run runs.Run, fn runFunc[T]) {
	ctx := r.Context()

	convs, err := h.conversations(ctx, src)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}

	results, err := fn(ctx, convs)
	if err != nil {
		handlers.RespondError(w, h.logger, mapStatus(err), err)
		return
	}
	run.Complete(len(convs))

	h.logger.InfoContext(ctx, "classification complete",
		"mode", run.Mode,
		"classifier_set", run.ClassifierSet,
		"conversations", len(convs),
		"subject", auth.Subject(ctx),
	)

	if src.OutputPath != "" {
		if err := records.WriteResults(ctx, h.rt.Records, src.OutputPath, results); err != nil {
			handlers.RespondError(w, h.logger, mapStatus(err), err)
			return
		}
	}

	resp := Response[T]{Results: results}
	if h.rt.Runs != nil {
		if err := runs.Save(ctx, h.rt.Runs, run, results); err != nil {
			handlers.RespondError(w, h.logger, runs.MapHTTPStatus(err), err)
			return
		}
		resp.RunID = &run.ID
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

func (h *classifyHandler) conversations(ctx context.Context, src Source) ([]conversation.Conversation, error) {
	if src.InputPath != "" {
		return h.rt.Records.ReadConversations(ctx, src.InputPath)
	}

	for i, c := range src.Conversations {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: conversation %d: %w", handlers.ErrInvalidBody, i, err)
		}
	}
	return src.Conversations, nil
}

func mapStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, handlers.ErrInvalidBody),
		errors.Is(err, aggregation.ErrUnknownMode),
		errors.Is(err, aggregation.ErrInvalidSampleSize),
		errors.Is(err, definitions.ErrUnknownSet),
		errors.Is(err, orchestrator.ErrTopLevelPolicy),
		errors.Is(err, conversation.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrEmptyKey),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, storage.ErrNotConfigured):
		return storage.MapHTTPStatus(err)
	case errors.Is(err, definitions.ErrInvalidDefinition),
		errors.Is(err, chunking.ErrUnknownPolicy),
		errors.Is(err, orchestrator.ErrUnknownDependency):
		return http.StatusInternalServerError
	case errors.Is(err, oracle.ErrCompletionFailed),
		errors.Is(err, oracle.ErrParseFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
