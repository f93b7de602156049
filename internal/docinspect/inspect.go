// Package docinspect checks that uploaded verification files are what they claim to be.
package docinspect

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"net/http"

	"github.com/ledongthuc/pdf"

	"partner-onboarding/internal/shared/storage/object"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"
)

var (
	ErrUnsupported = errors.New("unsupported content type")
	ErrMismatch    = errors.New("content does not match declared type")
	ErrCorrupt     = errors.New("file is corrupt or unreadable")
)

// Detect sniffs the content type of data, normalized the way the blob store expects.
func Detect(data []byte) string {
	return object.NormalizeContentType(http.DetectContentType(data))
}

// Inspect validates data against the declared content type and returns the normalized type.
func Inspect(data []byte, declared string) (string, error) {
	ct := object.NormalizeContentType(declared)
	if !object.AllowedContentType(ct) {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, declared)
	}
	if sniffed := Detect(data); sniffed != ct {
		return "", fmt.Errorf("%w: declared %s, detected %s", ErrMismatch, ct, sniffed)
	}

	switch ct {
	case MimePDF:
		if err := checkPDF(data); err != nil {
			return "", err
		}
	default:
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return ct, nil
}

func checkPDF(data []byte) (err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if r.NumPage() < 1 {
		return fmt.Errorf("%w: pdf has no pages", ErrCorrupt)
	}
	return nil
}
