package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// HashUserKey returns a path-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewRef builds a fresh ref "<hashed user>/<folder>/<uuid><ext>".
func NewRef(userID, folder, contentType string) string {
	ext := allowedContentTypes[NormalizeContentType(contentType)]
	folder = strings.Trim(strings.ReplaceAll(folder, "..", ""), "/")
	if folder == "" {
		folder = "misc"
	}
	return path.Join(HashUserKey(userID), folder, uuid.NewString()+ext)
}

// CleanRef rejects refs that could escape the store root.
func CleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRef)
	}
	clean := path.Clean(strings.ReplaceAll(ref, "\\", "/"))
	if strings.HasPrefix(clean, "..") || strings.HasPrefix(clean, "/") || clean == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return clean, nil
}
