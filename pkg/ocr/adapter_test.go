package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/security"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

func confidence(v float64) *float64 { return &v }

type fakeTransport struct {
	startErr error
	pages    [][]Block
	pollSeq  []JobStatus
	pollCall int
	failed   string
}

func (f *fakeTransport) Start(ctx context.Context, source types.SourceRef) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return "provider-job-1", nil
}

func (f *fakeTransport) Poll(ctx context.Context, providerHandle string) (JobStatus, string, error) {
	if f.pollCall >= len(f.pollSeq) {
		return StatusSucceeded, "", nil
	}
	status := f.pollSeq[f.pollCall]
	f.pollCall++
	if status == StatusFailed {
		return StatusFailed, f.failed, nil
	}
	return status, "", nil
}

func (f *fakeTransport) FetchPage(ctx context.Context, providerHandle, token string) ([]Block, string, error) {
	idx := 0
	if token != "" {
		idx = atoiOrZero(token)
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = itoa(idx + 1)
	}
	return f.pages[idx], next, nil
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func newTestAdapter(t *testing.T, transport Transport) *Adapter {
	t.Helper()
	secrets, err := security.NewSecretsManager(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("NewSecretsManager: %v", err)
	}
	store, err := blob.NewStore(t.TempDir(), secrets, nil)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}
	return NewAdapter(transport, store, 30*time.Second)
}

func testSource(documentID string) types.SourceRef {
	return types.SourceRef{
		Bucket: blob.BucketUploads,
		Key:    blob.UploadKey("owner-1", types.DocumentID(documentID), time.Unix(1700000000, 0), "pdf"),
	}
}

func TestAdapterHappyPath(t *testing.T) {
	transport := &fakeTransport{
		pollSeq: []JobStatus{StatusPending, StatusSucceeded},
		pages: [][]Block{
			{
				{Type: BlockLine, Text: "NAME: SMITH, JOHN", Confidence: confidence(99.1)},
				{Type: BlockWord, Text: "NAME", Confidence: confidence(98.0)},
			},
			{
				{Type: BlockLine, Text: "BRANCH OF SERVICE: ARMY", Confidence: confidence(97.4)},
			},
		},
	}
	adapter := newTestAdapter(t, transport)

	jobHandle, err := adapter.StartJob(context.Background(), testSource("doc-1"))
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	result, done, err := adapter.PollJob(context.Background(), jobHandle)
	if err != nil {
		t.Fatalf("PollJob (pending): %v", err)
	}
	if done {
		t.Fatalf("expected PollJob to report not done on first pending poll")
	}

	result, done, err = adapter.PollJob(context.Background(), jobHandle)
	if err != nil {
		t.Fatalf("PollJob (succeeded): %v", err)
	}
	if !done {
		t.Fatalf("expected PollJob to report done")
	}
	if !result.TextRef.IsSet() {
		t.Fatalf("expected a text ref to be set")
	}

	raw, err := adapter.store.Get(blob.BucketTextract, blob.ExtractionSummaryKey("doc-1"))
	if err != nil {
		t.Fatalf("reading extraction summary: %v", err)
	}
	var summary extractionSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("unmarshaling extraction summary: %v", err)
	}
	if summary.DocumentID != "doc-1" {
		t.Errorf("documentId = %q, want doc-1", summary.DocumentID)
	}
	if summary.ExtractedData["service_branch"] != "ARMY" {
		t.Errorf("extractedData.service_branch = %q, want ARMY", summary.ExtractedData["service_branch"])
	}
	if summary.Statistics.TotalBlocksFound != 3 {
		t.Errorf("statistics.totalBlocksFound = %d, want 3", summary.Statistics.TotalBlocksFound)
	}
	if summary.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestAdapterPollFailedIsPermanent(t *testing.T) {
	transport := &fakeTransport{
		pollSeq: []JobStatus{StatusFailed},
		failed:  "provider rejected the document",
	}
	adapter := newTestAdapter(t, transport)

	jobHandle, err := adapter.StartJob(context.Background(), testSource("doc-2"))
	if err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	_, done, err := adapter.PollJob(context.Background(), jobHandle)
	if done {
		t.Fatalf("expected done=false on failure")
	}
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestDecodeHandleRoundtrip(t *testing.T) {
	handle := encodeHandle(types.DocumentID("doc-3"), "provider-xyz")
	docID, providerHandle, err := decodeHandle(handle)
	if err != nil {
		t.Fatalf("decodeHandle: %v", err)
	}
	if docID != "doc-3" || providerHandle != "provider-xyz" {
		t.Errorf("decodeHandle = (%q, %q), want (doc-3, provider-xyz)", docID, providerHandle)
	}
}

func TestDocumentIDFromSource(t *testing.T) {
	source := testSource("11111111-2222-3333-4444-555555555555")
	got := documentIDFromSource(source)
	if got != types.DocumentID("11111111-2222-3333-4444-555555555555") {
		t.Errorf("documentIDFromSource = %q, want the uuid suffix", got)
	}
}

var _ orchestrator.OCRStage = (*Adapter)(nil)
