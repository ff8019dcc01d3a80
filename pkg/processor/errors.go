package processor

import "errors"

var (
	ErrNotFound         = errors.New("processor: resource not found")
	ErrInvalidSignature = errors.New("processor: invalid webhook signature")
	ErrMalformedEvent   = errors.New("processor: malformed event payload")
)
