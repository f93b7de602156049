package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo backs dev runs without DATABASE_URL.
type MemoryRepo struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byEmail[key]; ok && owner != user.ID {
		return ErrEmailTaken
	}

	now := r.now()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
		if user.FullName == "" {
			user.FullName = existing.FullName
		}
		delete(r.byEmail, strings.ToLower(existing.Email))
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}
