// Package api exposes the billing services over HTTP with chi.
//
// Caller routes live under /v1 and require a bearer token; the verified
// caller is taken from the token, never from the body. Responses use a single
// envelope:
//
//	{"data": ..., "meta": {...}, "error": {"code": "invite.not_pending", "message": "..."}}
//
// Error codes are the stable keys of the error taxonomy and the status code
// follows the error kind. The processor webhook at /webhooks/stripe is
// authenticated by its signature and answers 200, 400 or 500 so that only
// retryable failures are redelivered.
package api
