package definitions

import "errors"

// Configuration errors raised while loading classifier definitions.
var (
	ErrUnknownVersion    = errors.New("unknown definition version")
	ErrUnknownSet        = errors.New("unknown classifier set")
	ErrInvalidDefinition = errors.New("invalid classifier definition")
	ErrUnsupportedFormat = errors.New("unsupported definition file format")
)
