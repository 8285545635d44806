package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/extract"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// textTruncationLimit is the size discipline ceiling: past this many
// characters, downstream messages carry only the full_text.txt pointer,
// never the inlined text.
const textTruncationLimit = 5000

// previewLimit bounds the preview string written into
// extraction_summary.json.
const previewLimit = 500

// fullResults is the payload persisted to full_results.json.
type fullResults struct {
	JobHandle  string  `json:"job_handle"`
	BlockCount int     `json:"block_count"`
	Blocks     []Block `json:"blocks"`
}

// extractionSummary is the payload persisted to extraction_summary.json,
// field-for-field the documented external wire format.
type extractionSummary struct {
	DocumentID     types.DocumentID  `json:"documentId"`
	ExtractedData  map[string]string `json:"extractedData"`
	Statistics     statistics        `json:"statistics"`
	RawTextPreview string            `json:"rawTextPreview"`
	Timestamp      time.Time         `json:"timestamp"`
}

type statistics struct {
	TotalBlocksFound    int    `json:"totalBlocksFound"`
	TotalLinesExtracted int    `json:"totalLinesExtracted"`
	TotalWordsExtracted int    `json:"totalWordsExtracted"`
	ConfidenceScore     string `json:"confidenceScore"`
	FieldsIdentified    int    `json:"fieldsIdentified"`
	DataPoints          int    `json:"dataPoints"`
}

// Adapter implements orchestrator.OCRStage against an external OCR
// Transport, wrapped in a circuit breaker, persisting every result
// artifact through a blob.Store.
type Adapter struct {
	transport Transport
	breaker   *gobreaker.CircuitBreaker
	store     *blob.Store
	extractor *extract.Extractor
}

// NewAdapter wires a Transport to a blob.Store and field extract.Extractor.
// The breaker trips after 3 consecutive failures and probes again after
// the given reset timeout, matching the sony/gobreaker idiom used
// elsewhere in the stack for external-call protection.
func NewAdapter(transport Transport, store *blob.Store, resetTimeout time.Duration) *Adapter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ocr",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})
	return &Adapter{
		transport: transport,
		breaker:   breaker,
		store:     store,
		extractor: extract.New(),
	}
}

// encodeHandle encodes the document ID into the handle returned to the
// orchestrator, since PollJob receives only the handle and needs the
// document ID to locate where to persist results.
func encodeHandle(documentID types.DocumentID, providerHandle string) string {
	return fmt.Sprintf("%s:%s", documentID, providerHandle)
}

func decodeHandle(jobHandle string) (types.DocumentID, string, error) {
	idx := strings.IndexByte(jobHandle, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("malformed ocr job handle %q", jobHandle)
	}
	return types.DocumentID(jobHandle[:idx]), jobHandle[idx+1:], nil
}

// StartJob submits source for OCR and returns a job handle the executor
// persists and replays against PollJob, including across process restarts.
func (a *Adapter) StartJob(ctx context.Context, source types.SourceRef) (string, error) {
	documentID := documentIDFromSource(source)

	result, err := a.breaker.Execute(func() (any, error) {
		return a.transport.Start(ctx, source)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.BreakerRejectionsTotal.WithLabelValues("ocr").Inc()
		}
		return "", orchestrator.Transient(fmt.Errorf("starting ocr job: %w", err))
	}
	providerHandle := result.(string)
	return encodeHandle(documentID, providerHandle), nil
}

// PollJob reports whether the job named by jobHandle has finished. On
// success it paginates every result page, persists the result
// artifacts, and returns the pointer the orchestrator records on the
// document.
func (a *Adapter) PollJob(ctx context.Context, jobHandle string) (orchestrator.OCRResult, bool, error) {
	documentID, providerHandle, err := decodeHandle(jobHandle)
	if err != nil {
		return orchestrator.OCRResult{}, false, orchestrator.Permanent(err)
	}

	result, err := a.breaker.Execute(func() (any, error) {
		status, reason, err := a.transport.Poll(ctx, providerHandle)
		return pollOutcome{status, reason}, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.BreakerRejectionsTotal.WithLabelValues("ocr").Inc()
		}
		return orchestrator.OCRResult{}, false, orchestrator.Transient(fmt.Errorf("polling ocr job: %w", err))
	}

	outcome := result.(pollOutcome)
	switch outcome.status {
	case StatusPending:
		return orchestrator.OCRResult{}, false, nil
	case StatusFailed:
		return orchestrator.OCRResult{}, false, orchestrator.Permanent(fmt.Errorf("ocr job failed: %s", outcome.reason))
	}

	blocks, err := a.fetchAllPages(ctx, providerHandle)
	if err != nil {
		return orchestrator.OCRResult{}, false, orchestrator.Transient(err)
	}

	textRef, truncated, fields, err := a.persistResults(documentID, jobHandle, blocks)
	if err != nil {
		return orchestrator.OCRResult{}, false, orchestrator.Permanent(err)
	}

	return orchestrator.OCRResult{TextRef: textRef, TextTruncated: truncated, ExtractedFields: fields}, true, nil
}

type pollOutcome struct {
	status JobStatus
	reason string
}

// fetchAllPages paginates until the transport reports no continuation
// token remains, so the extracted text always reflects the full result
// set rather than a truncated prefix.
func (a *Adapter) fetchAllPages(ctx context.Context, providerHandle string) ([]Block, error) {
	var all []Block
	token := ""
	for {
		page, nextToken, err := a.transport.FetchPage(ctx, providerHandle, token)
		if err != nil {
			return nil, fmt.Errorf("fetching ocr result page: %w", err)
		}
		all = append(all, page...)
		if nextToken == "" {
			return all, nil
		}
		token = nextToken
	}
}

// persistResults writes full_results.json, full_text.txt, and
// extraction_summary.json, and returns the pointer the orchestrator
// records for extracted text, whether it was truncated, and the
// extracted field map so the orchestrator can carry it onto the record.
func (a *Adapter) persistResults(documentID types.DocumentID, jobHandle string, blocks []Block) (types.ArtifactRef, bool, map[string]string, error) {
	results := fullResults{JobHandle: jobHandle, BlockCount: len(blocks), Blocks: blocks}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return types.ArtifactRef{}, false, nil, fmt.Errorf("marshaling full results: %w", err)
	}
	if err := a.store.Put(blob.BucketTextract, blob.FullResultsKey(documentID), resultsJSON); err != nil {
		return types.ArtifactRef{}, false, nil, fmt.Errorf("writing full results: %w", err)
	}

	var lines []string
	wordCount := 0
	var confidenceSum float64
	var confidenceSamples int
	for _, b := range blocks {
		switch b.Type {
		case BlockLine:
			lines = append(lines, b.Text)
		case BlockWord:
			wordCount++
		}
		if b.Confidence != nil {
			confidenceSum += *b.Confidence
			confidenceSamples++
		}
	}
	fullText := strings.Join(lines, "\n")

	if err := a.store.Put(blob.BucketTextract, blob.FullTextKey(documentID), []byte(fullText)); err != nil {
		return types.ArtifactRef{}, false, nil, fmt.Errorf("writing full text: %w", err)
	}

	fields := a.extractor.Extract(lines)
	st := buildStats(blocks, lines, wordCount, confidenceSum, confidenceSamples, fields)

	preview := fullText
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}

	summary := extractionSummary{
		DocumentID:     documentID,
		ExtractedData:  fields,
		Statistics:     st,
		RawTextPreview: preview,
		Timestamp:      time.Now().UTC(),
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return types.ArtifactRef{}, false, nil, fmt.Errorf("marshaling extraction summary: %w", err)
	}
	if err := a.store.Put(blob.BucketTextract, blob.ExtractionSummaryKey(documentID), summaryJSON); err != nil {
		return types.ArtifactRef{}, false, nil, fmt.Errorf("writing extraction summary: %w", err)
	}

	log.WithComponent("ocr").Info().
		Str("document_id", string(documentID)).
		Int("blocks", len(blocks)).
		Int("fields", len(fields)).
		Msg("ocr results persisted")

	textRef := types.ArtifactRef{Bucket: blob.BucketTextract, Key: blob.FullTextKey(documentID)}
	return textRef, len(fullText) > textTruncationLimit, fields, nil
}

func buildStats(blocks []Block, lines []string, wordCount int, confidenceSum float64, confidenceSamples int, fields map[string]string) statistics {
	avg := "0"
	if confidenceSamples > 0 {
		avg = fmt.Sprintf("%.10f", confidenceSum/float64(confidenceSamples))
	}
	nonEmpty := 0
	for _, v := range fields {
		if v != "" {
			nonEmpty++
		}
	}
	return statistics{
		TotalBlocksFound:    len(blocks),
		TotalLinesExtracted: len(lines),
		TotalWordsExtracted: wordCount,
		ConfidenceScore:     avg,
		FieldsIdentified:    len(fields),
		DataPoints:          nonEmpty,
	}
}

// documentIDFromSource recovers the document ID encoded by
// blob.UploadKey's layout: {owner_id}/{timestamp}_{document_id}.{ext}.
func documentIDFromSource(source types.SourceRef) types.DocumentID {
	base := source.Key
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, "."+extFromKey(source.Key))
	if idx := strings.IndexByte(base, '_'); idx >= 0 {
		return types.DocumentID(base[idx+1:])
	}
	return types.DocumentID(base)
}

func extFromKey(key string) string {
	idx := strings.LastIndexByte(key, '.')
	if idx < 0 {
		return ""
	}
	return key[idx+1:]
}
