package pii

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/security"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

func newTestStoreWithText(t *testing.T, text string) (*blob.Store, types.ArtifactRef) {
	t.Helper()
	secrets, err := security.NewSecretsManager(bytes.Repeat([]byte{0x33}, 32))
	if err != nil {
		t.Fatalf("NewSecretsManager: %v", err)
	}
	store, err := blob.NewStore(t.TempDir(), secrets, nil)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}
	key := "full_text.txt"
	if err := store.Put(blob.BucketTextract, key, []byte(text)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return store, types.ArtifactRef{Bucket: blob.BucketTextract, Key: key}
}

func TestDetectFindsGeneralPatterns(t *testing.T) {
	store, ref := newTestStoreWithText(t, "Contact: jane.doe@example.com SSN 123-45-6789")
	d := NewDetector(store, nil, 0)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var sawSSN, sawEmail bool
	for _, f := range result.Findings {
		if f.Kind == types.PIISSN {
			sawSSN = true
		}
		if f.Kind == types.PIIEmail {
			sawEmail = true
		}
	}
	if !sawSSN || !sawEmail {
		t.Errorf("expected SSN and email findings, got %+v", result.Findings)
	}
}

func TestDetectAlwaysRedactGuaranteesCoverage(t *testing.T) {
	store, ref := newTestStoreWithText(t, "DATE OF BIRTH: [illegible]\nHOME OF RECORD: [illegible]")
	d := NewDetector(store, nil, 0)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	fields := make(map[string]bool)
	for _, f := range result.Findings {
		fields[f.FieldName] = true
	}
	if !fields["date of birth"] || !fields["home of record"] {
		t.Errorf("expected always-redact coverage for date of birth and home of record, got %+v", result.Findings)
	}
}

func TestDetectNoPIIMarkerWhenEmpty(t *testing.T) {
	store, ref := newTestStoreWithText(t, "nothing sensitive here")
	d := NewDetector(store, nil, 0)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !result.NoPIIMarker {
		t.Errorf("expected NoPIIMarker=true, got findings=%+v", result.Findings)
	}
}

type fakeClassifier struct {
	findings []ClassifierFinding
	err      error
	delay    time.Duration
}

func (f *fakeClassifier) Detect(ctx context.Context, text string) ([]ClassifierFinding, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.findings, f.err
}

func TestDetectClassifierAugmentsFindings(t *testing.T) {
	store, ref := newTestStoreWithText(t, "plain text with no pattern matches")
	classifier := &fakeClassifier{findings: []ClassifierFinding{
		{Kind: string(types.PIIName), Start: 0, End: 5, Confidence: 0.92},
	}}
	d := NewDetector(store, classifier, 0)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var sawClassifier bool
	for _, f := range result.Findings {
		if f.Source == types.PIISourceClassifier {
			sawClassifier = true
		}
	}
	if !sawClassifier {
		t.Errorf("expected a classifier-sourced finding, got %+v", result.Findings)
	}
}

func TestDetectClassifierTimeoutFallsBackWithoutError(t *testing.T) {
	store, ref := newTestStoreWithText(t, "DATE OF BIRTH: 01/01/1990")
	classifier := &fakeClassifier{delay: time.Second}
	d := NewDetector(store, classifier, 0).WithClassifierWait(10 * time.Millisecond)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect returned an error on classifier timeout: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Errorf("expected always-redact fallback findings, got none")
	}
}

func TestDetectClassifierHardFailureFallsBackWithoutError(t *testing.T) {
	store, ref := newTestStoreWithText(t, "DATE OF BIRTH: 01/01/1990")
	classifier := &fakeClassifier{err: errors.New("classifier service unavailable")}
	d := NewDetector(store, classifier, 0)

	result, err := d.Detect(context.Background(), ref)
	if err != nil {
		t.Fatalf("Detect returned an error on classifier hard failure: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Errorf("expected always-redact fallback findings, got none")
	}
}
