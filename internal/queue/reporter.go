package queue

import (
	"context"
	"time"

	"partner-onboarding/internal/verification"
)

// Client sends cleanup messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Reporter forwards orphaned objects from the verification service to the cleanup queue.
type Reporter struct {
	Client Client
	Now    func() time.Time
}

func NewReporter(client Client) *Reporter {
	return &Reporter{Client: client}
}

func (r *Reporter) ReportOrphan(ctx context.Context, o verification.Orphan) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return r.Client.Send(ctx, Message{
		Ref:        o.Ref,
		UserID:     o.UserID,
		DocType:    string(o.DocType),
		Reason:     o.Reason,
		RequestID:  o.RequestID,
		EnqueuedAt: now().UTC().Format(time.RFC3339),
		Version:    o.Version,
	})
}

var _ verification.OrphanReporter = (*Reporter)(nil)
