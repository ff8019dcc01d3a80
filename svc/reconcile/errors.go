package reconcile

import "errors"

var (
	ErrInvalidSignature    = errors.New("reconcile: invalid signature")
	ErrMalformedEvent      = errors.New("reconcile: malformed event")
	ErrUnknownSubscription = errors.New("reconcile: subscription not stored yet")
	ErrStoreFailed         = errors.New("reconcile: store write failed")
)
