package runs

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/emoclassify/pkg/handlers"
	"github.com/JaimeStill/emoclassify/pkg/pagination"
	"github.com/JaimeStill/emoclassify/pkg/query"
	"github.com/JaimeStill/emoclassify/pkg/routes"
)

// Handler provides HTTP endpoints for recorded runs.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger, cfg pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "runs"),
		pagination: cfg,
	}
}

// Routes returns the route group for run endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a page of runs, optionally filtered by mode, classifier_set,
// and model, and ordered by sort ("-started_at" by default).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.FromQuery(q, h.pagination)

	filters := Filters{
		Mode:          Mode(q.Get("mode")),
		ClassifierSet: q.Get("classifier_set"),
		Model:         q.Get("model"),
		Sort:          query.ParseSort(q.Get("sort")),
	}
	switch filters.Mode {
	case "", ModeSimple, ModeHierarchical:
	default:
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: %q", ErrInvalidMode, filters.Mode))
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single run with its results.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return
	}

	detail, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}
