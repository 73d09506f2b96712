package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
	"github.com/JaimeStill/emoclassify/internal/classifier"
	"github.com/JaimeStill/emoclassify/internal/conversation"
)

// SimpleResult maps classifier name to its aggregate for one conversation.
type SimpleResult map[string]aggregation.Result

// Present returns, sorted, the classifiers whose result indicates presence.
func (r SimpleResult) Present() []string {
	var names []string
	for name, res := range r {
		if res.Truthy() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Simple applies every classifier of a set to every conversation at once.
type Simple struct {
	classifiers classifier.Set
	aggregator  aggregation.Aggregator
	logger      *slog.Logger
}

// NewSimple creates a Simple runner.
func NewSimple(set classifier.Set, agg aggregation.Aggregator, logger *slog.Logger) *Simple {
	return &Simple{
		classifiers: set,
		aggregator:  agg,
		logger:      logger.With("system", "orchestrator", "mode", "simple"),
	}
}

// Run classifies every conversation concurrently, preserving input order.
func (s *Simple) Run(ctx context.Context, convs []conversation.Conversation) ([]SimpleResult, error) {
	start := time.Now()
	s.logger.InfoContext(ctx, "run started",
		"conversations", len(convs),
		"classifiers", len(s.classifiers),
		"aggregation", s.aggregator.Mode,
	)

	results, err := runAll(ctx, convs, s.classify)
	if err != nil {
		s.logger.ErrorContext(ctx, "run failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	s.logger.InfoContext(ctx, "run completed", "conversations", len(convs), "duration", time.Since(start))
	return results, nil
}

// Classify applies every classifier to a single conversation.
func (s *Simple) Classify(ctx context.Context, conv conversation.Conversation) (SimpleResult, error) {
	return s.classify(ctx, 0, conv)
}

func (s *Simple) classify(ctx context.Context, index int, conv conversation.Conversation) (SimpleResult, error) {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(SimpleResult, len(s.classifiers))
	)

	for name, c := range s.classifiers {
		g.Go(func() error {
			verdicts, err := c.ClassifyConversation(ctx, conv)
			if err != nil {
				return err
			}
			res, err := s.aggregator.Aggregate(verdicts)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
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

	s.logger.DebugContext(ctx, "conversation classified", "conversation", index, "present", out.Present())
	return out, nil
}

// runAll fans out fn over every conversation and joins. Results keep input
// order; every conversation's error is reported, tagged with its index.
func runAll[T any](
	ctx context.Context,
	convs []conversation.Conversation,
	fn func(ctx context.Context, index int, conv conversation.Conversation) (T, error),
) ([]T, error) {
	var wg sync.WaitGroup
	results := make([]T, len(convs))
	errs := make([]error, len(convs))

	for i, conv := range convs {
		wg.Go(func() {
			res, err := fn(ctx, i, conv)
			if err != nil {
				errs[i] = fmt.Errorf("conversation %d: %w", i, err)
				return
			}
			results[i] = res
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
