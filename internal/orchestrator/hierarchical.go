// Package orchestrator runs classifier sets across batches of conversations.
// Hierarchical runs gate sub-classifiers on top-level topic classifiers;
// simple runs apply one set of classifiers directly.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/classifier"
	"github.com/JaimeStill/emoclassify/internal/conversation"
	"github.com/JaimeStill/emoclassify/internal/definitions"
)

// HierarchicalResult is the output for one conversation. Sub-classifiers whose
// dependencies all came back negative are absent from SubLevel.
type HierarchicalResult struct {
	TopLevel map[string]bool               `json:"top_level"`
	SubLevel map[string]aggregation.Result `json:"sub_level"`
}

// Hierarchical runs top-level classifiers first and dispatches each
// sub-classifier only when at least one of its dependencies fired.
type Hierarchical struct {
	topLevel   classifier.Set
	subLevel   classifier.Set
	deps       definitions.DependencyGraph
	aggregator aggregation.Aggregator
	observer   Observer
	logger     *slog.Logger
}

// Option configures an orchestrator.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver registers a callback for per-conversation state changes.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// NewHierarchical validates the classifier sets against the dependency graph.
// Every top-level classifier must use the whole policy, and every
// sub-classifier must have a graph entry naming only loaded top-level
// classifiers.
func NewHierarchical(
	topLevel, subLevel classifier.Set,
	deps definitions.DependencyGraph,
	agg aggregation.Aggregator,
	logger *slog.Logger,
	opts ...Option,
) (*Hierarchical, error) {
	for _, name := range topLevel.Names() {
		if p := topLevel[name].Definition().Policy(); p != chunking.WholeConversation {
			return nil, fmt.Errorf("%w: %s uses %s", ErrTopLevelPolicy, name, p)
		}
	}

	for _, name := range subLevel.Names() {
		requires, ok := deps[name]
		if !ok {
			return nil, fmt.Errorf("%w: sub-classifier %s has no dependency entry", ErrUnknownDependency, name)
		}
		for _, dep := range requires {
			if _, ok := topLevel[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, name, dep)
			}
		}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Hierarchical{
		topLevel:   topLevel,
		subLevel:   subLevel,
		deps:       deps,
		aggregator: agg,
		observer:   o.observer,
		logger:     logger.With("system", "orchestrator", "mode", "hierarchical"),
	}, nil
}

// Run classifies every conversation concurrently and returns one result per
// input, in input order. A failed conversation fails the run; the returned
// error joins every conversation's failure.
func (h *Hierarchical) Run(ctx context.Context, convs []conversation.Conversation) ([]HierarchicalResult, error) {
	start := time.Now()
	h.logger.InfoContext(ctx, "run started",
		"conversations", len(convs),
		"top_level", len(h.topLevel),
		"sub_level", len(h.subLevel),
	)

	results, err := runAll(ctx, convs, h.classify)
	if err != nil {
		h.logger.ErrorContext(ctx, "run failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	h.logger.InfoContext(ctx, "run completed", "conversations", len(convs), "duration", time.Since(start))
	return results, nil
}

// Classify runs both tiers for a single conversation.
func (h *Hierarchical) Classify(ctx context.Context, conv conversation.Conversation) (HierarchicalResult, error) {
	return h.classify(ctx, 0, conv)
}

func (h *Hierarchical) classify(ctx context.Context, index int, conv conversation.Conversation) (HierarchicalResult, error) {
	t := &tracker{index: index, state: Pending, observer: h.observer}
	if h.observer != nil {
		h.observer(index, Pending)
	}

	if err := t.advance(Tier1Running); err != nil {
		return HierarchicalResult{}, err
	}

	topLevel, err := h.tier1(ctx, conv)
	if err != nil {
		return HierarchicalResult{}, err
	}

	if err := t.advance(Tier1Done); err != nil {
		return HierarchicalResult{}, err
	}

	eligible := h.eligible(topLevel)
	h.logger.DebugContext(ctx, "tier 1 complete",
		"conversation", index,
		"topics", topLevel,
		"eligible", eligible,
	)

	if err := t.advance(Tier2Running); err != nil {
		return HierarchicalResult{}, err
	}

	subLevel, err := h.tier2(ctx, conv, eligible)
	if err != nil {
		return HierarchicalResult{}, err
	}

	if err := t.advance(Done); err != nil {
		return HierarchicalResult{}, err
	}

	return HierarchicalResult{TopLevel: topLevel, SubLevel: subLevel}, nil
}

func (h *Hierarchical) tier1(ctx context.Context, conv conversation.Conversation) (map[string]bool, error) {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[string]bool, len(h.topLevel))
	)

	for name, c := range h.topLevel {
		g.Go(func() error {
			verdicts, err := c.ClassifyConversation(ctx, conv)
			if err != nil {
				return fmt.Errorf("top-level %s: %w", name, err)
			}
			mu.Lock()
			out[name] = aggregation.Any(verdicts)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// eligible returns the sub-classifiers with at least one positive dependency.
func (h *Hierarchical) eligible(topLevel map[string]bool) []string {
	var names []string
	for _, name := range h.subLevel.Names() {
		if slices.ContainsFunc(h.deps[name], func(dep string) bool { return topLevel[dep] }) {
			names = append(names, name)
		}
	}
	return names
}

func (h *Hierarchical) tier2(ctx context.Context, conv conversation.Conversation, eligible []string) (map[string]aggregation.Result, error) {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[string]aggregation.Result, len(eligible))
	)

	for _, name := range eligible {
		c := h.subLevel[name]
		g.Go(func() error {
			verdicts, err := c.ClassifyConversation(ctx, conv)
			if err != nil {
				return fmt.Errorf("sub-level %s: %w", name, err)
			}
			res, err := h.aggregator.Aggregate(verdicts)
			if err != nil {
				return fmt.Errorf("sub-level %s: %w", name, err)
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
