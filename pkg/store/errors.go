package store

import "errors"

var (
	ErrNotFound  = errors.New("store: document not found")
	ErrDuplicate = errors.New("store: duplicate document")
	ErrConflict  = errors.New("store: conditional write failed")
)
