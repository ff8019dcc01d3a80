package config

import "errors"

var (
	ErrParsingConfig = errors.New("config: failed to parse environment into struct")
	ErrNilPointer    = errors.New("config: nil pointer provided to loader")
	ErrLoadingEnv    = errors.New("config: failed to load env file")
)
