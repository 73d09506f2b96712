package oracle

import "errors"

// Sentinel errors for oracle calls.
var (
	// ErrParseFailure marks oracle output that is not one of yes, no, or unsure.
	ErrParseFailure = errors.New("oracle response is not a verdict")
	// ErrCompletionFailed wraps transport or service failures from the completer.
	ErrCompletionFailed = errors.New("oracle completion failed")
	// ErrRenderFailed marks a prompt template that could not be filled.
	ErrRenderFailed = errors.New("render classification prompt")
	ErrNoChoices    = errors.New("oracle returned no choices")
	ErrRefused      = errors.New("oracle refused the request")
	ErrMissingToken = errors.New("oracle token required")
)
