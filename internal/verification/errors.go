package verification

import "errors"

var (
	// ErrValidation marks bad input. Nothing is stored or changed.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing record or an empty slot.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a blob store failure that aborted the operation.
	ErrStorage = errors.New("storage error")
)
