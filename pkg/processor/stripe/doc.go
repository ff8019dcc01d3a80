// Package stripe implements processor.Processor on top of stripe-go.
//
// Stripe "resource_missing" errors and HTTP 404s are translated to
// processor.ErrNotFound. Webhook payloads are verified with the endpoint
// secret from Config.
package stripe
