package redact

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/security"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

func newTestRedactor(t *testing.T) *Redactor {
	t.Helper()
	secrets, err := security.NewSecretsManager(bytes.Repeat([]byte{0x5a}, 32))
	if err != nil {
		t.Fatalf("NewSecretsManager: %v", err)
	}
	store, err := blob.NewStore(t.TempDir(), secrets, nil)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}
	return NewRedactor(store)
}

func putText(t *testing.T, r *Redactor, documentID, text string) types.ArtifactRef {
	t.Helper()
	key := blob.FullTextKey(types.DocumentID(documentID))
	if err := r.store.Put(blob.BucketTextract, key, []byte(text)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return types.ArtifactRef{Bucket: blob.BucketTextract, Key: key}
}

func TestRedactRemovesSSNAndEmail(t *testing.T) {
	r := newTestRedactor(t)
	ref := putText(t, r, "doc-1", "SSN 123-45-6789, contact jane@example.com")

	out, err := r.Redact(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}

	body, err := r.store.Get(out.Bucket, out.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if strings.Contains(string(body), "123-45-6789") || strings.Contains(string(body), "jane@example.com") {
		t.Errorf("redacted body still contains PII: %s", body)
	}
	if !strings.HasPrefix(string(body), headerLine+"\n") {
		t.Errorf("redacted body missing documented header line: %s", body)
	}
}

func TestWrapProducesDocumentedFormat(t *testing.T) {
	generatedAt := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	got := wrap(generatedAt, "BODY TEXT", 3)

	want := "=== REDACTED DD214 DOCUMENT ===\n" +
		"Generated: 2026-07-29T12:00:00Z\n" +
		"PII Items Redacted: 3\n" +
		"REDACTED CONTENT:\n" +
		"================\n\n" +
		"BODY TEXT\n\n" +
		"================\n" +
		"=== END OF REDACTED DD214 DOCUMENT ==="

	if got != want {
		t.Errorf("wrap() =\n%q\nwant\n%q", got, want)
	}
}

func TestRedactAppliesStructuralLabel(t *testing.T) {
	r := newTestRedactor(t)
	ref := putText(t, r, "doc-2", "DATE OF BIRTH: 04/15/1985")

	out, err := r.Redact(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	body, _ := r.store.Get(out.Bucket, out.Key)
	if strings.Contains(string(body), "04/15/1985") {
		t.Errorf("date of birth value survived redaction: %s", body)
	}
	if !strings.Contains(string(body), "DATE OF BIRTH") {
		t.Errorf("field label should survive redaction, got: %s", body)
	}
}

func TestRedactIsIdempotent(t *testing.T) {
	r := newTestRedactor(t)
	ref := putText(t, r, "doc-3", "SSN 123-45-6789")

	first, err := r.Redact(context.Background(), ref, nil)
	if err != nil {
		t.Fatalf("Redact (first): %v", err)
	}
	firstBody, _ := r.store.Get(first.Bucket, first.Key)

	second, err := r.Redact(context.Background(), first, nil)
	if err != nil {
		t.Fatalf("Redact (second): %v", err)
	}
	secondBody, _ := r.store.Get(second.Bucket, second.Key)

	if string(firstBody) != string(secondBody) {
		t.Errorf("re-redacting changed the artifact:\nfirst:  %s\nsecond: %s", firstBody, secondBody)
	}
	if strings.Count(string(secondBody), headerLine) != 1 {
		t.Errorf("expected exactly one header, got body: %s", secondBody)
	}
}

func TestRedactAppliesSpanFindingsInReverseOrder(t *testing.T) {
	r := newTestRedactor(t)
	text := "AAAA BBBB CCCC"
	ref := putText(t, r, "doc-4", text)

	findings := []types.PIIFinding{
		{Kind: types.PIIName, Span: &types.Span{Start: 0, End: 4}},
		{Kind: types.PIIOther, Span: &types.Span{Start: 10, End: 14}},
	}

	out, err := r.Redact(context.Background(), ref, findings)
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	body, _ := r.store.Get(out.Bucket, out.Key)
	if strings.Contains(string(body), "AAAA") || strings.Contains(string(body), "CCCC") {
		t.Errorf("span-based replacement left original text: %s", body)
	}
	if !strings.Contains(string(body), "BBBB") {
		t.Errorf("unrelated text should survive: %s", body)
	}
}

func TestRedactFallsBackToPlaceholderWhenTextMissing(t *testing.T) {
	r := newTestRedactor(t)
	missing := types.ArtifactRef{Bucket: blob.BucketTextract, Key: blob.FullTextKey("doc-5")}

	out, err := r.Redact(context.Background(), missing, nil)
	if err != nil {
		t.Fatalf("Redact should not fail on missing text: %v", err)
	}
	body, _ := r.store.Get(out.Bucket, out.Key)
	if !strings.Contains(string(body), placeholderText) {
		t.Errorf("expected placeholder text, got: %s", body)
	}
}
