package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"partner-onboarding/internal/shared/storage/object"
)

// Store implements BlobStore using the local filesystem.
type Store struct {
	baseDir string
	baseURL string
}

// New creates a new local blob store rooted at baseDir. URLs are baseURL + "/files/" + ref.
func New(baseDir, baseURL string) *Store {
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Store writes the body to disk under the user's namespace.
func (s *Store) Store(ctx context.Context, in object.StoreInput) (object.Blob, error) {
	if err := object.ValidateInput(in); err != nil {
		return object.Blob{}, err
	}
	if err := ctx.Err(); err != nil {
		return object.Blob{}, err
	}

	ref := object.NewRef(in.UserID, in.Folder, in.ContentType)
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.Blob{}, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return object.Blob{}, fmt.Errorf("open file: %w", err)
	}

	// Read one byte past the limit so an understated SizeBytes is still caught.
	written, copyErr := io.Copy(f, io.LimitReader(in.Body, object.MaxObjectBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(fullPath)
		return object.Blob{}, fmt.Errorf("write body: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(fullPath)
		return object.Blob{}, fmt.Errorf("close file: %w", closeErr)
	case written > object.MaxObjectBytes:
		_ = os.Remove(fullPath)
		return object.Blob{}, fmt.Errorf("%w: body exceeds %d bytes", object.ErrTooLarge, object.MaxObjectBytes)
	}

	return object.Blob{
		Ref:       ref,
		URL:       s.URL(ref),
		SizeBytes: written,
	}, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// URL returns the public URL served by the /files route.
func (s *Store) URL(ref string) string {
	return s.baseURL + "/files/" + ref
}

func (s *Store) path(ref string) (string, error) {
	clean, err := object.CleanRef(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

var _ object.BlobStore = (*Store)(nil)
