package validation

import (
	"context"
	"testing"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

func TestValidateAcceptsKnownContentTypeWithinLimit(t *testing.T) {
	checker := New(1024)
	err := checker.Validate(context.Background(), types.SourceRef{
		Bucket:      "uploads",
		Key:         "owner-1/123_doc-1.pdf",
		ContentType: "application/pdf",
		ByteSize:    512,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsUnsupportedContentType(t *testing.T) {
	checker := New(1024)
	err := checker.Validate(context.Background(), types.SourceRef{
		Bucket:      "uploads",
		Key:         "owner-1/123_doc-1.gif",
		ContentType: "image/gif",
		ByteSize:    512,
	})
	if err == nil {
		t.Fatal("expected an error for an unsupported content type")
	}
}

func TestValidateRejectsOversizedUpload(t *testing.T) {
	checker := New(1024)
	err := checker.Validate(context.Background(), types.SourceRef{
		Bucket:      "uploads",
		Key:         "owner-1/123_doc-1.pdf",
		ContentType: "application/pdf",
		ByteSize:    2048,
	})
	if err == nil {
		t.Fatal("expected an error for an oversized upload")
	}
}

func TestValidateRejectsNonPositiveByteSize(t *testing.T) {
	checker := New(1024)
	err := checker.Validate(context.Background(), types.SourceRef{
		Bucket:      "uploads",
		Key:         "owner-1/123_doc-1.pdf",
		ContentType: "application/pdf",
		ByteSize:    0,
	})
	if err == nil {
		t.Fatal("expected an error for a zero byte size")
	}
}

func TestValidateUsesDefaultLimitWhenUnconfigured(t *testing.T) {
	checker := New(0)
	err := checker.Validate(context.Background(), types.SourceRef{
		Bucket:      "uploads",
		Key:         "owner-1/123_doc-1.png",
		ContentType: "image/png",
		ByteSize:    defaultMaxByteSize + 1,
	})
	if err == nil {
		t.Fatal("expected an error once the default limit is exceeded")
	}
}
