// Package mongo opens MongoDB connections from environment configuration.
//
// New retries the initial connect and ping, which absorbs the window in which
// a replica set is still electing a primary during deploys. Healthcheck wraps
// a ping for the HTTP health endpoint. Documents themselves are handled by
// pkg/store/mongostore.
package mongo
