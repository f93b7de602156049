package object

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidateInput(t *testing.T) {
	t.Parallel()

	body := bytes.NewReader([]byte("x"))
	tests := []struct {
		name string
		in   StoreInput
		want error
	}{
		{name: "pdf ok", in: StoreInput{ContentType: "application/pdf", SizeBytes: 10, Body: body}},
		{name: "jpg alias ok", in: StoreInput{ContentType: "image/jpg", SizeBytes: 10, Body: body}},
		{name: "png with params ok", in: StoreInput{ContentType: "image/png; q=1", SizeBytes: 10, Body: body}},
		{name: "exact limit ok", in: StoreInput{ContentType: "image/png", SizeBytes: MaxObjectBytes, Body: body}},
		{name: "gif rejected", in: StoreInput{ContentType: "image/gif", SizeBytes: 10, Body: body}, want: ErrUnsupportedContent},
		{name: "over limit", in: StoreInput{ContentType: "image/png", SizeBytes: MaxObjectBytes + 1, Body: body}, want: ErrTooLarge},
		{name: "empty", in: StoreInput{ContentType: "image/png", SizeBytes: 0, Body: body}, want: ErrTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateInput(tt.in)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewRefAndCleanRef(t *testing.T) {
	ref := NewRef("user-1", "governmentId", "application/pdf")
	parts := strings.Split(ref, "/")
	if len(parts) != 3 {
		t.Fatalf("expected 3 path segments, got %q", ref)
	}
	if parts[0] != HashUserKey("user-1") || len(parts[0]) != 64 {
		t.Fatalf("expected hashed user prefix, got %q", parts[0])
	}
	if parts[1] != "governmentId" || !strings.HasSuffix(parts[2], ".pdf") {
		t.Fatalf("unexpected ref %q", ref)
	}
	if NewRef("user-1", "governmentId", "application/pdf") == ref {
		t.Fatalf("expected unique refs")
	}

	if _, err := CleanRef(ref); err != nil {
		t.Fatalf("CleanRef(%q): %v", ref, err)
	}
	for _, bad := range []string{"", "../etc/passwd", "/abs/path", "a/../../b", "."} {
		if _, err := CleanRef(bad); !errors.Is(err, ErrInvalidRef) {
			t.Fatalf("expected ErrInvalidRef for %q, got %v", bad, err)
		}
	}
}
