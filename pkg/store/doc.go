// Package store declares the document store contract used by the billing
// services. mongostore implements it on MongoDB; memstore is an in-memory
// implementation for tests and local runs.
//
// Implementations return ErrNotFound, ErrDuplicate and ErrConflict (possibly
// wrapped) so callers can branch with errors.Is.
package store
