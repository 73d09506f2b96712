// Package oracle issues classification requests against the external
// completion service. A single Client is constructed per process and shared by
// every classifier so that one gate bounds all in-flight calls.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/emoclassify/internal/chunking"
	"github.com/JaimeStill/emoclassify/internal/definitions"
)

// Request is a single structured-output completion request.
type Request struct {
	Prompt string
	// Choices are the only labels the response may carry.
	Choices         []string
	MaxOutputTokens int
}

// Completer is the external completion service. Retries and timeouts are its
// responsibility; Complete returns the raw response content.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client admits oracle calls through a FIFO counting gate.
type Client struct {
	completer       Completer
	gate            *semaphore.Weighted
	capacity        int
	maxOutputTokens int
	truncate        bool
	logger          *slog.Logger
	tracer          trace.Tracer
}

// New creates a Client capped at cfg.MaxConcurrent simultaneous calls.
func New(completer Completer, cfg *Config, logger *slog.Logger) *Client {
	capacity := max(cfg.MaxConcurrent, 1)
	maxTokens := cfg.MaxOutputTokens
	if maxTokens < 1 {
		maxTokens = DefaultMaxOutputTokens
	}

	return &Client{
		completer:       completer,
		gate:            semaphore.NewWeighted(int64(capacity)),
		capacity:        capacity,
		maxOutputTokens: maxTokens,
		truncate:        cfg.Truncate,
		logger:          logger.With("system", "oracle"),
		tracer:          otel.Tracer("emoclassify/oracle"),
	}
}

// Capacity returns the maximum number of simultaneous oracle calls.
func (c *Client) Capacity() int {
	return c.capacity
}

// Classify renders the definition's prompt around chunk, waits for a slot,
// and returns the parsed verdict. A response that is not a verdict yields
// ErrParseFailure; no call is retried.
func (c *Client) Classify(ctx context.Context, def definitions.Definition, chunk chunking.Chunk) (Verdict, error) {
	ctx, span := c.tracer.Start(ctx, "oracle.Client.Classify",
		trace.WithAttributes(
			attribute.String("classifier", def.Name()),
			attribute.String("version", string(def.Version())),
			attribute.Int("chunk_messages", chunk.Len()),
		),
	)
	defer span.End()

	prompt, err := def.RenderPrompt(chunk.Render(c.truncate))
	if err != nil {
		span.SetStatus(codes.Error, "render failed")
		return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, def.Name(), err)
	}

	content, err := c.complete(ctx, Request{
		Prompt:          prompt,
		Choices:         Choices(),
		MaxOutputTokens: c.maxOutputTokens,
	})
	if err != nil {
		callTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}

	v, err := ParseResponse(content)
	if err != nil {
		callTotal.WithLabelValues("parse_failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		c.logger.WarnContext(ctx, "unparseable oracle response",
			"classifier", def.Name(),
			"content", content,
		)
		return "", err
	}

	callTotal.WithLabelValues(string(v)).Inc()
	span.SetAttributes(attribute.String("verdict", string(v)))
	return v, nil
}

func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	queued := time.Now()
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.gate.Release(1)

	gateWait.Observe(time.Since(queued).Seconds())
	inFlight.Inc()
	defer inFlight.Dec()

	start := time.Now()
	content, err := c.completer.Complete(ctx, req)
	callDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	return content, nil
}
