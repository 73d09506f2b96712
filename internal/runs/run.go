// Package runs persists classification runs and their per-conversation
// results in PostgreSQL and serves them over HTTP.
package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/emoclassify/internal/aggregation"
)

// Mode identifies which orchestrator produced a run.
type Mode string

// Run modes.
const (
	ModeSimple       Mode = "simple"
	ModeHierarchical Mode = "hierarchical"
)

// Run describes one classification run.
type Run struct {
	ID            uuid.UUID        `json:"id"`
	Mode          Mode             `json:"mode"`
	ClassifierSet string           `json:"classifier_set"`
	Aggregation   aggregation.Mode `json:"aggregation"`
	AvgNumChunks  int              `json:"avg_num_chunks"`
	Model         string           `json:"model"`
	Conversations int              `json:"conversations"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   time.Time        `json:"completed_at"`
}

// Detail is a run with its results in input order.
type Detail struct {
	Run
	Results []json.RawMessage `json:"results"`
}

// New creates a run with a fresh id. CompletedAt and Conversations are set
// by Complete.
func New(mode Mode, set string, agg aggregation.Aggregator, model string) Run {
	return Run{
		ID:            uuid.New(),
		Mode:          mode,
		ClassifierSet: set,
		Aggregation:   agg.Mode,
		AvgNumChunks:  agg.AvgNumChunks,
		Model:         model,
		StartedAt:     time.Now().UTC(),
	}
}

// Complete stamps the completion time and conversation count.
func (r *Run) Complete(conversations int) {
	r.Conversations = conversations
	r.CompletedAt = time.Now().UTC()
}

// Save marshals results and records them with run.
func Save[T any](ctx context.Context, sys System, run Run, results []T) error {
	raw, err := Marshal(results)
	if err != nil {
		return err
	}
	return sys.Record(ctx, run, raw)
}

// Marshal encodes each result for storage.
func Marshal[T any](results []T) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(results))
	for i, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal result %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}
