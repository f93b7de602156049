package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-onboarding/internal/verification"
)

func newTestService() (*Service, *verification.Service) {
	records := &verification.Service{Repo: verification.NewMemoryRepo()}
	return NewService(NewMemoryRepo(), records), records
}

func TestRegisterCreatesVerificationRecord(t *testing.T) {
	svc, records := newTestService()
	ctx := context.Background()

	p, err := svc.Register(ctx, User{ID: "u1", Email: "rider@example.com", FullName: "Ada Rider"})
	require.NoError(t, err)
	assert.Equal(t, "rider@example.com", p.User.Email)
	assert.Equal(t, verification.StatusNotSubmitted, p.Record.Status)
	assert.Len(t, p.Record.Documents, 4)

	rec, err := records.GetRecord(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Version)
}

func TestRegisterIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, User{ID: "u1", Email: "a@example.com", FullName: "Ada"})
	require.NoError(t, err)
	p, err := svc.Register(ctx, User{ID: "u1", Email: "b@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "b@example.com", p.User.Email)
	assert.Equal(t, "Ada", p.User.FullName)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	for _, u := range []User{{Email: "a@example.com"}, {ID: "u1"}, {ID: "u1", Email: "nope"}} {
		_, err := svc.Register(context.Background(), u)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", u, err)
		}
	}
}

func TestProfileMissingUser(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Profile(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRejectsEmailOwnedByAnotherUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, User{ID: "u1", Email: "Shared@Example.com"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, User{ID: "u2", Email: "shared@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// The original owner can still re-register with a new case.
	_, err = svc.Register(ctx, User{ID: "u1", Email: "shared@example.com"})
	assert.NoError(t, err)
}
