// Package model defines the persisted documents shared by the store,
// the services and the HTTP layer.
package model
