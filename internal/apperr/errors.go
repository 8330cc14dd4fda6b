package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrDisabled marks a session that stays inert for this process lifetime.
	ErrDisabled = errors.New("substitution disabled")

	ErrDictionaryDisabled    = errors.New("dictionary source returned no record")
	ErrDictionaryUnavailable = errors.New("dictionary unavailable")
)
