package api

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrInvalidBody  = apperr.New(apperr.InvalidArgument, "request.invalid_body")
	ErrInvalidQuery = apperr.New(apperr.InvalidArgument, "request.invalid_query")
	ErrBodyTooLarge = apperr.New(apperr.InvalidArgument, "request.body_too_large")
)
