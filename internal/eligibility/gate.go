// Package eligibility answers whether a partner may accept delivery jobs.
package eligibility

import (
	"context"

	"partner-onboarding/internal/verification"
)

// RecordReader is the slice of the verification service the gate needs.
type RecordReader interface {
	GetRecord(ctx context.Context, userID string) (verification.Record, error)
}

// Gate reads the persisted aggregate status on every call.
type Gate struct {
	Records RecordReader
}

func NewGate(records RecordReader) *Gate {
	return &Gate{Records: records}
}

// IsEligiblePartner reports whether the user's aggregate status is approved.
// A missing record yields false and an error wrapping verification.ErrNotFound.
func (g *Gate) IsEligiblePartner(ctx context.Context, userID string) (bool, error) {
	rec, err := g.Records.GetRecord(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec.Status == verification.StatusApproved, nil
}

// Check returns the verdict together with the status it was derived from.
func (g *Gate) Check(ctx context.Context, userID string) (bool, verification.AggregateStatus, error) {
	rec, err := g.Records.GetRecord(ctx, userID)
	if err != nil {
		return false, "", err
	}
	return rec.Status == verification.StatusApproved, rec.Status, nil
}
