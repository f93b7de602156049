package verification

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType names one of the four fixed document slots.
type DocumentType string

const (
	DocGovernmentID        DocumentType = "governmentId"
	DocProofOfAddress      DocumentType = "proofOfAddress"
	DocProofOfInsurance    DocumentType = "proofOfInsurance"
	DocVehicleRegistration DocumentType = "vehicleRegistrationCertificate"
)

// backgroundCheckConsent appears in an older document list but no slot exists for it.
const backgroundCheckConsent = "backgroundCheckConsent"

// DocumentTypes lists every slot in display order.
var DocumentTypes = []DocumentType{
	DocGovernmentID,
	DocProofOfAddress,
	DocProofOfInsurance,
	DocVehicleRegistration,
}

// Valid reports whether t is one of the four slots.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseDocumentType converts a wire value into a DocumentType.
func ParseDocumentType(raw string) (DocumentType, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return "", fmt.Errorf("%w: docType is required", ErrValidation)
	case raw == backgroundCheckConsent:
		return "", fmt.Errorf("%w: %s is not an accepted document type", ErrValidation, raw)
	}
	t := DocumentType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: invalid docType %q", ErrValidation, raw)
	}
	return t, nil
}

// SlotStatus is the review state of a single document.
type SlotStatus string

const (
	SlotNotSubmitted SlotStatus = "not_submitted"
	SlotPending      SlotStatus = "pending"
	SlotApproved     SlotStatus = "approved"
	SlotRejected     SlotStatus = "rejected"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotNotSubmitted, SlotPending, SlotApproved, SlotRejected:
		return true
	}
	return false
}

// AggregateStatus is the verdict derived from all four slots.
type AggregateStatus string

const (
	StatusNotSubmitted AggregateStatus = "not_submitted"
	StatusPending      AggregateStatus = "pending"
	StatusApproved     AggregateStatus = "approved"
)

func (s AggregateStatus) Valid() bool {
	switch s {
	case StatusNotSubmitted, StatusPending, StatusApproved:
		return true
	}
	return false
}

// Slot holds the stored object for one document type. An empty Ref means nothing is stored.
type Slot struct {
	Ref         string
	URL         string
	UploadedAt  *time.Time
	Status      SlotStatus
	ContentType string
	SizeBytes   int64
}

// Submitted reports whether the slot references a stored object.
func (s Slot) Submitted() bool {
	return s.Ref != ""
}

// EmptySlot returns a slot with nothing stored.
func EmptySlot() Slot {
	return Slot{Status: SlotNotSubmitted}
}

// Record is the per-user verification state.
type Record struct {
	UserID    string
	Documents map[DocumentType]Slot
	Status    AggregateStatus
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord builds a record with four empty slots.
func NewRecord(userID string, now time.Time) Record {
	docs := make(map[DocumentType]Slot, len(DocumentTypes))
	for _, t := range DocumentTypes {
		docs[t] = EmptySlot()
	}
	return Record{
		UserID:    userID,
		Documents: docs,
		Status:    StatusNotSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share slot state with a repository.
func (r Record) Clone() Record {
	out := r
	out.Documents = make(map[DocumentType]Slot, len(r.Documents))
	for k, v := range r.Documents {
		if v.UploadedAt != nil {
			at := *v.UploadedAt
			v.UploadedAt = &at
		}
		out.Documents[k] = v
	}
	return out
}

// Validate checks the structural rules every persisted record must satisfy.
func (r Record) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(r.Documents) != len(DocumentTypes) {
		return fmt.Errorf("%w: record has %d slots", ErrValidation, len(r.Documents))
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: invalid verification status %q", ErrValidation, r.Status)
	}
	for _, t := range DocumentTypes {
		slot, ok := r.Documents[t]
		if !ok {
			return fmt.Errorf("%w: missing slot %s", ErrValidation, t)
		}
		if !slot.Status.Valid() {
			return fmt.Errorf("%w: slot %s has invalid status %q", ErrValidation, t, slot.Status)
		}
		if slot.Submitted() {
			if slot.UploadedAt == nil {
				return fmt.Errorf("%w: slot %s has a ref but no upload time", ErrValidation, t)
			}
			if slot.Status == SlotNotSubmitted {
				return fmt.Errorf("%w: slot %s has a ref but is not_submitted", ErrValidation, t)
			}
			continue
		}
		if slot.Status != SlotNotSubmitted {
			return fmt.Errorf("%w: empty slot %s has status %s", ErrValidation, t, slot.Status)
		}
		if slot.URL != "" || slot.UploadedAt != nil {
			return fmt.Errorf("%w: empty slot %s carries stale metadata", ErrValidation, t)
		}
	}
	return nil
}
