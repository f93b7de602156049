package verification

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record

	locksMu sync.Mutex
	locks   map[string]*userLock // userId -> exclusive section, dropped when idle
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		records: make(map[string]Record),
		locks:   make(map[string]*userLock),
	}
}

func (r *MemoryRepo) Ensure(ctx context.Context, userID string, now time.Time) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[userID]; ok {
		return rec.Clone(), nil
	}
	rec := NewRecord(userID, now.UTC())
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	r.records[userID] = rec
	return rec.Clone(), nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return Record{}, fmt.Errorf("%w: verification record for user %s", ErrNotFound, userID)
	}
	return rec.Clone(), nil
}

func (r *MemoryRepo) Update(ctx context.Context, userID string, fn MutateFunc) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	lock := r.acquire(userID)
	defer r.release(userID, lock)

	current, err := r.Get(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Record{}, err
	}
	next.UserID = current.UserID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	if err := next.Validate(); err != nil {
		return Record{}, err
	}

	r.mu.Lock()
	r.records[userID] = next
	r.mu.Unlock()
	return next.Clone(), nil
}

// acquire locks the user's exclusive section, creating it on first use.
func (r *MemoryRepo) acquire(userID string) *userLock {
	r.locksMu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &userLock{}
		r.locks[userID] = l
	}
	l.refs++
	r.locksMu.Unlock()

	l.mu.Lock()
	return l
}

// release unlocks the section and forgets it once no caller holds or waits on it.
func (r *MemoryRepo) release(userID string, l *userLock) {
	l.mu.Unlock()
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, userID)
	}
}

func (r *MemoryRepo) lockCount() int {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	return len(r.locks)
}
