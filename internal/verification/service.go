package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"partner-onboarding/internal/docinspect"
	"partner-onboarding/internal/shared/metrics"
	"partner-onboarding/internal/shared/storage/object"
	"partner-onboarding/internal/shared/telemetry"
)

const (
	OrphanReasonReplaced     = "replace_cleanup_failed"
	OrphanReasonCommitFailed = "commit_failed"
)

// Orphan describes a stored object that no record references any more.
type Orphan struct {
	Ref       string
	UserID    string
	DocType   DocumentType
	Reason    string
	RequestID string
	Version   int64
}

// OrphanReporter hands orphaned objects to a cleanup process.
type OrphanReporter interface {
	ReportOrphan(ctx context.Context, o Orphan) error
}

// SubmitInput is a single document upload.
type SubmitInput struct {
	UserID      string
	DocType     string
	Data        []byte
	ContentType string
	SizeBytes   int64
}

// Service runs document submission, deletion and review against the blob store and the record repo.
// Blob store calls happen outside Repo.Update so the per-user section only covers the record write.
type Service struct {
	Store   object.BlobStore
	Repo    Repo
	Policy  ApprovalPolicy
	Resolve Resolver
	Orphans OrphanReporter
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// EnsureRecord creates the user's record if it does not exist yet.
func (s *Service) EnsureRecord(ctx context.Context, userID string) (Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return Record{}, err
	}
	return s.Repo.Ensure(ctx, userID, s.now())
}

// GetRecord returns the user's current record.
func (s *Service) GetRecord(ctx context.Context, userID string) (Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return Record{}, err
	}
	return s.Repo.Get(ctx, userID)
}

// SubmitDocument stores a file and records it in the slot for its document type,
// replacing and cleaning up whatever the slot held before.
func (s *Service) SubmitDocument(ctx context.Context, in SubmitInput) (Record, error) {
	start := time.Now()
	defer func() { s.Metrics.ObserveSubmitSeconds(time.Since(start).Seconds()) }()

	userID, err := requireUser(in.UserID)
	if err != nil {
		return Record{}, err
	}
	docType, err := ParseDocumentType(in.DocType)
	if err != nil {
		return Record{}, err
	}
	size, contentType, err := checkFile(in)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.Repo.Get(ctx, userID); err != nil {
		return Record{}, err
	}

	// Once the blob store is involved the operation runs to completion.
	ctx = context.WithoutCancel(ctx)
	blob, err := s.Store.Store(ctx, object.StoreInput{
		UserID:      userID,
		Folder:      string(docType),
		ContentType: contentType,
		SizeBytes:   size,
		Body:        bytes.NewReader(in.Data),
	})
	if err != nil {
		if errors.Is(err, object.ErrUnsupportedContent) || errors.Is(err, object.ErrTooLarge) {
			return Record{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		s.Metrics.IncStorageError("store")
		telemetry.Error("verification.store_failed", s.fields(ctx, userID, docType, map[string]any{"error": err}))
		return Record{}, fmt.Errorf("%w: store document: %v", ErrStorage, err)
	}

	now := s.now()
	var oldRef string
	var previous AggregateStatus
	rec, err := s.Repo.Update(ctx, userID, func(rec *Record) error {
		oldRef = rec.Documents[docType].Ref
		previous = rec.Status
		rec.Documents[docType] = Slot{
			Ref:         blob.Ref,
			URL:         blob.URL,
			UploadedAt:  &now,
			Status:      s.policy().InitialStatus(docType),
			ContentType: contentType,
			SizeBytes:   size,
		}
		rec.Status = s.resolver()(rec.Documents, rec.Status)
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.discard(ctx, userID, docType, blob.Ref, err)
		return Record{}, err
	}

	s.Metrics.IncDocumentSubmitted(string(docType))
	s.observeTransition(ctx, userID, previous, rec.Status)
	telemetry.Info("verification.document_submitted", s.fields(ctx, userID, docType, map[string]any{
		"ref":      blob.Ref,
		"replaced": oldRef != "",
		"status":   string(rec.Status),
		"version":  rec.Version,
	}))

	if oldRef != "" && oldRef != blob.Ref {
		s.cleanupReplaced(ctx, rec, docType, oldRef)
	}
	return rec, nil
}

// DeleteDocument removes the stored object for a slot and then clears the slot.
// A blob store failure aborts before the record is touched.
func (s *Service) DeleteDocument(ctx context.Context, userID, rawDocType string) (Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return Record{}, err
	}
	docType, err := ParseDocumentType(rawDocType)
	if err != nil {
		return Record{}, err
	}
	current, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	slot := current.Documents[docType]
	if !slot.Submitted() {
		return Record{}, fmt.Errorf("%w: no document to delete", ErrNotFound)
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.Store.Delete(ctx, slot.Ref); err != nil {
		s.Metrics.IncStorageError("delete")
		telemetry.Error("verification.delete_failed", s.fields(ctx, userID, docType, map[string]any{
			"ref":   slot.Ref,
			"error": err,
		}))
		return Record{}, fmt.Errorf("%w: delete document: %v", ErrStorage, err)
	}

	var previous AggregateStatus
	rec, err := s.Repo.Update(ctx, userID, func(rec *Record) error {
		cur := rec.Documents[docType]
		if !cur.Submitted() {
			return fmt.Errorf("%w: no document to delete", ErrNotFound)
		}
		if cur.Ref != slot.Ref {
			return fmt.Errorf("%w: document changed during delete", ErrNotFound)
		}
		previous = rec.Status
		now := s.now()
		rec.Documents[docType] = EmptySlot()
		rec.Status = s.resolver()(rec.Documents, rec.Status)
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	s.Metrics.IncDocumentDeleted(string(docType))
	s.observeTransition(ctx, userID, previous, rec.Status)
	telemetry.Info("verification.document_deleted", s.fields(ctx, userID, docType, map[string]any{
		"ref":     slot.Ref,
		"status":  string(rec.Status),
		"version": rec.Version,
	}))
	return rec, nil
}

// ReviewDocument records a reviewer decision on a submitted slot.
func (s *Service) ReviewDocument(ctx context.Context, userID, rawDocType, decision string) (Record, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return Record{}, err
	}
	docType, err := ParseDocumentType(rawDocType)
	if err != nil {
		return Record{}, err
	}
	status := SlotStatus(strings.ToLower(strings.TrimSpace(decision)))
	if status != SlotApproved && status != SlotRejected {
		return Record{}, fmt.Errorf("%w: decision must be approved or rejected", ErrValidation)
	}

	var previous AggregateStatus
	rec, err := s.Repo.Update(ctx, userID, func(rec *Record) error {
		slot := rec.Documents[docType]
		if !slot.Submitted() {
			return fmt.Errorf("%w: no document to review", ErrNotFound)
		}
		previous = rec.Status
		slot.Status = status
		rec.Documents[docType] = slot
		rec.Status = s.resolver()(rec.Documents, rec.Status)
		rec.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	s.observeTransition(ctx, userID, previous, rec.Status)
	telemetry.Info("verification.document_reviewed", s.fields(ctx, userID, docType, map[string]any{
		"decision": string(status),
		"status":   string(rec.Status),
	}))
	return rec, nil
}

func checkFile(in SubmitInput) (int64, string, error) {
	if len(in.Data) == 0 {
		return 0, "", fmt.Errorf("%w: file is required", ErrValidation)
	}
	size := in.SizeBytes
	if size == 0 {
		size = int64(len(in.Data))
	}
	if size != int64(len(in.Data)) {
		return 0, "", fmt.Errorf("%w: declared size %d does not match %d bytes received", ErrValidation, size, len(in.Data))
	}
	if size > object.MaxObjectBytes {
		return 0, "", fmt.Errorf("%w: file exceeds the %d byte limit", ErrValidation, object.MaxObjectBytes)
	}
	contentType, err := docinspect.Inspect(in.Data, in.ContentType)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return size, contentType, nil
}

// cleanupReplaced deletes the object a replace made unreachable. Failures never fail the submission.
func (s *Service) cleanupReplaced(ctx context.Context, rec Record, docType DocumentType, ref string) {
	err := s.Store.Delete(ctx, ref)
	if err == nil {
		return
	}
	s.Metrics.IncCleanupFailure()
	telemetry.Warn("verification.cleanup_failed", s.fields(ctx, rec.UserID, docType, map[string]any{
		"ref":   ref,
		"error": err,
	}))
	s.reportOrphan(ctx, Orphan{
		Ref:     ref,
		UserID:  rec.UserID,
		DocType: docType,
		Reason:  OrphanReasonReplaced,
		Version: rec.Version,
	})
}

// discard handles a freshly stored object whose record write failed. A rejected mutation never
// committed, so the object is deleted here. Any other failure may have committed anyway, so the
// object goes to the orphan queue, whose worker re-checks the record before deleting.
func (s *Service) discard(ctx context.Context, userID string, docType DocumentType, ref string, cause error) {
	orphan := Orphan{Ref: ref, UserID: userID, DocType: docType, Reason: OrphanReasonCommitFailed}
	definite := errors.Is(cause, ErrValidation) || errors.Is(cause, ErrNotFound)
	if !definite && s.Orphans != nil {
		s.reportOrphan(ctx, orphan)
		return
	}

	err := s.Store.Delete(ctx, ref)
	if err == nil {
		return
	}
	s.Metrics.IncCleanupFailure()
	telemetry.Warn("verification.discard_failed", s.fields(ctx, userID, docType, map[string]any{
		"ref":   ref,
		"error": err,
	}))
	s.reportOrphan(ctx, orphan)
}

func (s *Service) reportOrphan(ctx context.Context, o Orphan) {
	if s.Orphans == nil {
		return
	}
	o.RequestID = telemetry.RequestID(ctx)
	if err := s.Orphans.ReportOrphan(ctx, o); err != nil {
		telemetry.Error("verification.orphan_report_failed", s.fields(ctx, o.UserID, o.DocType, map[string]any{
			"ref":   o.Ref,
			"error": err,
		}))
		return
	}
	s.Metrics.IncOrphanReported()
}

func (s *Service) observeTransition(ctx context.Context, userID string, from, to AggregateStatus) {
	if from == to {
		return
	}
	s.Metrics.ObserveStatusTransition(string(from), string(to))
	telemetry.Info("verification.status_changed", map[string]any{
		"request_id": telemetry.RequestID(ctx),
		"user_id":    userID,
		"from":       string(from),
		"to":         string(to),
	})
}

func (s *Service) fields(ctx context.Context, userID string, docType DocumentType, extra map[string]any) map[string]any {
	fields := map[string]any{
		"request_id": telemetry.RequestID(ctx),
		"user_id":    userID,
		"doc_type":   string(docType),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (s *Service) policy() ApprovalPolicy {
	if s.Policy == nil {
		return AutoApprove{}
	}
	return s.Policy
}

func (s *Service) resolver() Resolver {
	if s.Resolve == nil {
		return ResolveStrict
	}
	return s.Resolve
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return userID, nil
}
