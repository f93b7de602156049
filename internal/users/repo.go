package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered to another user")
)

// Repo persists partner accounts. Upsert never clears a stored full name, and emails are
// unique ignoring case (ErrEmailTaken).
type Repo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
}
