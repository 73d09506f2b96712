package runs

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/emoclassify/pkg/query"
)

// Domain errors for run operations.
var (
	ErrNotFound    = errors.New("run not found")
	ErrDuplicate   = errors.New("run already exists")
	ErrInvalidMode = errors.New("invalid run mode")
)

// MapHTTPStatus maps run errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidMode), errors.Is(err, query.ErrUnknownField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
