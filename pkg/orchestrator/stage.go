package orchestrator

import (
	"context"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// ValidationStage checks an uploaded document is well-formed enough to
// process (content type, byte size, basic structure) before any external
// call is made on its behalf. A validation failure is always stage
// permanent: there is nothing to retry.
type ValidationStage interface {
	Validate(ctx context.Context, source types.SourceRef) error
}

// OCRResult is the outcome of a completed OCR job.
type OCRResult struct {
	TextRef         types.ArtifactRef
	TextTruncated   bool
	ExtractedFields map[string]string
}

// OCRStage talks to the external OCR service. StartJob submits the
// document and returns a job handle; PollJob is called repeatedly at the
// executor's configured interval until it reports done or returns a
// non-transient error. Implementations must be safe to call PollJob with
// a handle obtained from a previous process (job handles are persisted on
// the record so polling can resume after a restart).
type OCRStage interface {
	StartJob(ctx context.Context, source types.SourceRef) (jobHandle string, err error)
	PollJob(ctx context.Context, jobHandle string) (result OCRResult, done bool, err error)
}

// PIIResult is the outcome of running PII detection over extracted text.
type PIIResult struct {
	Findings    []types.PIIFinding
	NoPIIMarker bool
}

// PIIStage detects PII in extracted text, combining pattern matches with
// an optional async classifier. Implementations own their own bounded
// wait and always-redact fallback; the executor treats PIIStage as a
// single synchronous call with ordinary retry semantics.
type PIIStage interface {
	Detect(ctx context.Context, textRef types.ArtifactRef) (PIIResult, error)
}

// RedactionStage produces a redacted copy of extracted text given the
// findings PIIStage reported.
type RedactionStage interface {
	Redact(ctx context.Context, textRef types.ArtifactRef, findings []types.PIIFinding) (types.ArtifactRef, error)
}

// InsightsResult is the outcome of generating the consumer-facing career
// intelligence artifact.
type InsightsResult struct {
	InsightsRef types.ArtifactRef
	Method      types.AnalysisMethod
}

// InsightsStage generates the insight artifact from a document's
// extracted and redacted state. Implementations own their own salvage and
// fallback logic; a well-formed InsightsResult is always returned unless
// the stage itself fails outright (e.g. no artifact could be persisted).
type InsightsStage interface {
	Generate(ctx context.Context, record *types.DocumentRecord) (InsightsResult, error)
}
