package orchestrator

import "errors"

var (
	// ErrUnknownDependency is returned when the dependency graph names a
	// top-level classifier that is not loaded, or a sub-classifier has no entry.
	ErrUnknownDependency = errors.New("unknown classifier dependency")
	// ErrTopLevelPolicy is returned when a top-level classifier does not chunk
	// the whole conversation.
	ErrTopLevelPolicy = errors.New("top-level classifiers must use the whole policy")

	ErrInvalidTransition = errors.New("invalid state transition")
)
