package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partner-onboarding/internal/verification"
)

var ErrInvalidInput = errors.New("invalid user input")

// RecordStore is the part of the verification service account creation depends on.
type RecordStore interface {
	EnsureRecord(ctx context.Context, userID string) (verification.Record, error)
	GetRecord(ctx context.Context, userID string) (verification.Record, error)
}

type Service struct {
	Repo    Repo
	Records RecordStore
}

func NewService(repo Repo, records RecordStore) *Service {
	return &Service{Repo: repo, Records: records}
}

// Profile is a user plus their verification snapshot.
type Profile struct {
	User   User
	Record verification.Record
}

// Register persists the account and creates its verification record with four empty slots.
// Calling it again for the same id updates the account and leaves the record untouched.
func (s *Service) Register(ctx context.Context, user User) (Profile, error) {
	if s == nil || s.Repo == nil || s.Records == nil {
		return Profile{}, errors.New("users service not configured")
	}
	user.ID = strings.TrimSpace(user.ID)
	user.Email = strings.TrimSpace(user.Email)
	user.FullName = strings.TrimSpace(user.FullName)
	if user.ID == "" || user.Email == "" {
		return Profile{}, fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}
	if !strings.Contains(user.Email, "@") {
		return Profile{}, fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return Profile{}, err
	}
	stored, err := s.Repo.GetByID(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	rec, err := s.Records.EnsureRecord(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: stored, Record: rec}, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

// Profile loads the account and its verification record.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	rec, err := s.Records.GetRecord(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Record: rec}, nil
}
