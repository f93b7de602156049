package verification

import (
	"context"
	"time"
)

// MutateFunc edits a record inside the per-user exclusive section.
// Returning an error aborts the write and leaves the stored record untouched.
type MutateFunc func(rec *Record) error

// Repo persists verification records.
type Repo interface {
	// Ensure creates the record with four empty slots unless it already exists.
	Ensure(ctx context.Context, userID string, now time.Time) (Record, error)
	Get(ctx context.Context, userID string) (Record, error)
	// Update runs fn while holding the user's exclusive section and persists the result as one write.
	Update(ctx context.Context, userID string, fn MutateFunc) (Record, error)
}
