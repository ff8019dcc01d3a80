package identity

import (
	"errors"

	"github.com/dmitrymomot/saasbilling/pkg/apperr"
)

var (
	ErrUnauthenticated = apperr.New(apperr.Unauthenticated, "auth.unauthenticated")

	ErrMissingToken = errors.New("identity: missing bearer token")
	ErrInvalidToken = errors.New("identity: invalid token")
)
