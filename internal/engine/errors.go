package engine

import "errors"

var (
	// ErrValidation indicates a validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the tree root or snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPartialInsert indicates that some files could not be rewritten or
	// some orphaned content could not be written out. The other files were
	// processed normally.
	ErrPartialInsert = errors.New("insert incomplete")
)
