// Package memstore is an in-memory implementation of store.Store, used by
// service tests and by `billingd serve --memory` for local development.
package memstore
