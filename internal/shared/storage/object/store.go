package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxObjectBytes is the largest object the blob store accepts (5 MiB).
const MaxObjectBytes int64 = 5_242_880

var (
	ErrUnsupportedContent = errors.New("unsupported content type")
	ErrTooLarge           = errors.New("object too large")
	ErrInvalidRef         = errors.New("invalid object ref")
)

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// StoreInput describes an object to write.
type StoreInput struct {
	UserID      string
	Folder      string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// Blob identifies a stored object. Ref is opaque to callers; URL is the public location.
type Blob struct {
	Ref       string
	URL       string
	SizeBytes int64
}

// BlobStore defines the contract for storing and deleting verification files.
type BlobStore interface {
	Store(ctx context.Context, in StoreInput) (Blob, error)
	// Delete removes the object. Deleting a missing object succeeds.
	Delete(ctx context.Context, ref string) error
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// AllowedContentType reports whether contentType may be stored.
func AllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[NormalizeContentType(contentType)]
	return ok
}

// NormalizeContentType lowercases and strips parameters ("image/png; charset=x" -> "image/png").
func NormalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		return "image/jpeg"
	}
	return ct
}

// ValidateInput applies the store's content-type and size limits.
func ValidateInput(in StoreInput) error {
	if !AllowedContentType(in.ContentType) {
		return fmt.Errorf("%w: %q", ErrUnsupportedContent, in.ContentType)
	}
	if in.SizeBytes <= 0 {
		return fmt.Errorf("%w: empty object", ErrTooLarge)
	}
	if in.SizeBytes > MaxObjectBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, in.SizeBytes, MaxObjectBytes)
	}
	if in.Body == nil {
		return errors.New("object body is required")
	}
	return nil
}
