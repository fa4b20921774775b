// Package apperr defines the sentinel errors shared across the library core.
package apperr

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity indicates a write referenced a missing owner row.
	ErrIntegrity = errors.New("integrity violation")

	// ErrDuplicate indicates a uniqueness constraint rejected a write.
	ErrDuplicate = errors.New("already collected")
)
