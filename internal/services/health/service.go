package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service encapsulates health-related checks.
type Service struct {
	DB *sql.DB
}

// NewService constructs a new health service. db may be nil when running on in-memory repositories.
func NewService(db *sql.DB) *Service {
	return &Service{DB: db}
}

// Status reports liveness and, when a database is configured, whether it answers a ping.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	payload := map[string]any{"ok": true}
	if s == nil || s.DB == nil {
		payload["database"] = "memory"
		return payload, true
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		payload["ok"] = false
		payload["database"] = "unreachable"
		return payload, false
	}
	payload["database"] = "ok"
	return payload, true
}
