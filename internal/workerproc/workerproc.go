package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"partner-onboarding/internal/queue"
	"partner-onboarding/internal/shared/storage/object"
	"partner-onboarding/internal/shared/telemetry"
	"partner-onboarding/internal/verification"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure or an unusable ref.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingRef indicates a message without an object ref.
type ErrMissingRef struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingRef) Error() string { return "missing object ref" }

// ErrProcess indicates the delete failed after successful parsing. The message should be retried.
type ErrProcess struct {
	Ref       string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "delete orphan"
	}
	return "delete orphan: " + e.Err.Error()
}

// Unrecoverable reports whether err means the message can never succeed and should be dropped.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingRef:
		return true
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.Ref) == "" {
		return msg, meta, ErrMissingRef{Meta: meta, RequestID: msg.RequestID}
	}
	clean, err := object.CleanRef(msg.Ref)
	if err != nil {
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	msg.Ref = clean
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// Deleter removes objects from the blob store. Deleting a missing object succeeds.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// RecordReader loads verification records.
type RecordReader interface {
	GetRecord(ctx context.Context, userID string) (verification.Record, error)
}

// Outcome of a processed message.
type Outcome string

const (
	OutcomeDeleted Outcome = "deleted"
	// OutcomeSkipped means a record still references the object, so it was kept.
	OutcomeSkipped Outcome = "skipped"
)

// Cleaner deletes orphaned objects named by queue messages.
type Cleaner struct {
	Store   Deleter
	Records RecordReader
}

// HandleMessage parses, validates, and processes a message payload.
func (c *Cleaner) HandleMessage(ctx context.Context, body string) (Outcome, error) {
	if c == nil || c.Store == nil {
		return "", errors.New("blob store not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(msg.Ref) == "" {
		return "", ErrMissingRef{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	referenced, err := c.stillReferenced(ctx, msg)
	if err != nil {
		return "", ErrProcess{Ref: msg.Ref, RequestID: msg.RequestID, Err: err}
	}
	if referenced {
		return OutcomeSkipped, nil
	}
	if err := c.Store.Delete(ctx, msg.Ref); err != nil {
		return "", ErrProcess{Ref: msg.Ref, RequestID: msg.RequestID, Err: err}
	}
	return OutcomeDeleted, nil
}

// stillReferenced reports whether the owner's record points at msg.Ref. Only a missing record
// counts as unreferenced; any other read failure is returned so the message is retried.
func (c *Cleaner) stillReferenced(ctx context.Context, msg queue.Message) (bool, error) {
	if c.Records == nil || msg.UserID == "" {
		return false, nil
	}
	rec, err := c.Records.GetRecord(ctx, msg.UserID)
	if errors.Is(err, verification.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load record %s: %w", msg.UserID, err)
	}
	for _, slot := range rec.Documents {
		if slot.Ref == msg.Ref {
			return true, nil
		}
	}
	return false, nil
}
