package runs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/emoclassify/pkg/pagination"
	"github.com/JaimeStill/emoclassify/pkg/query"
)

// Filters narrows and orders run listings. Empty fields are ignored; an
// empty Sort lists newest first.
type Filters struct {
	Mode          Mode
	ClassifierSet string
	Model         string
	Sort          []query.SortField
}

// System records and retrieves runs.
type System interface {
	// Record stores run and its results atomically.
	Record(ctx context.Context, run Run, results []json.RawMessage) error
	// Find returns a run with its results.
	Find(ctx context.Context, id uuid.UUID) (*Detail, error)
	// List returns a page of runs matching filters.
	List(ctx context.Context, page pagination.Request, filters Filters) (*pagination.Result[Run], error)
	// Handler returns the HTTP handler for run endpoints.
	Handler() *Handler
}
