package types

import "time"

// DocumentID identifies a single DD214 submission end-to-end. Opaque and
// server-generated; never reassigned once a record exists.
type DocumentID string

// Status is a monotone summary of a DocumentRecord's steps.
type Status string

const (
	StatusPendingUpload     Status = "pending_upload"
	StatusUploaded          Status = "uploaded"
	StatusProcessing        Status = "processing"
	StatusTextractComplete  Status = "textract_complete"
	StatusMacieComplete     Status = "macie_complete"
	StatusInsightsComplete  Status = "insights_complete"
	StatusComplete          Status = "complete"
	StatusError             Status = "error"
)

// StepName identifies one stage of the pipeline. Also the key into a
// DocumentRecord's Steps map.
type StepName string

const (
	StepUpload       StepName = "upload"
	StepValidation   StepName = "validation"
	StepOCR          StepName = "ocr"
	StepPIIDetection StepName = "pii_detection"
	StepRedaction    StepName = "redaction"
	StepInsights     StepName = "insights"
)

// orderedSteps is the canonical step sequence; status derivation and the
// orchestrator's state machine both walk it in this order.
var orderedSteps = []StepName{
	StepUpload, StepValidation, StepOCR, StepPIIDetection, StepRedaction, StepInsights,
}

// OrderedSteps returns the canonical step sequence, leftmost-first.
func OrderedSteps() []StepName {
	out := make([]StepName, len(orderedSteps))
	copy(out, orderedSteps)
	return out
}

// StepState is the lifecycle state of one step within one execution.
type StepState string

const (
	StepPending    StepState = "pending"
	StepInProgress StepState = "in_progress"
	StepComplete   StepState = "complete"
	StepError      StepState = "error"
)

// CanTransition reports whether a step may move from the receiver state to next.
// Complete is only reachable from InProgress; Error and InProgress are both
// reachable from any non-terminal state, since a retried step re-enters
// InProgress after an Error and a failed attempt can mark Error from
// InProgress itself; there is no regression from Complete back to InProgress.
func (s StepState) CanTransition(next StepState) bool {
	switch next {
	case StepComplete:
		return s == StepInProgress
	case StepError:
		return s != StepComplete
	case StepInProgress:
		return s != StepComplete
	case StepPending:
		return s == ""
	default:
		return false
	}
}

// StepRecord tracks one step's progress within a DocumentRecord.
type StepRecord struct {
	State        StepState  `json:"state" validate:"required"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	JobHandle    string     `json:"job_handle,omitempty"`
}

// SourceRef locates the original uploaded blob.
type SourceRef struct {
	Bucket           string `json:"bucket" validate:"required"`
	Key              string `json:"key" validate:"required"`
	ContentType      string `json:"content_type"`
	ByteSize         int64  `json:"byte_size"`
	OriginalFilename string `json:"original_filename"`
}

// ArtifactRef points at a durable object in the Blob Store. The zero value
// (empty Key) means "not yet produced".
type ArtifactRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// IsSet reports whether the ref points at a real object.
func (a ArtifactRef) IsSet() bool {
	return a.Key != ""
}

// PIIKind classifies a PII finding.
type PIIKind string

const (
	PIISSN           PIIKind = "SSN"
	PIIDoDID         PIIKind = "DOD_ID"
	PIIDateOfBirth   PIIKind = "DATE_OF_BIRTH"
	PIIAddress       PIIKind = "ADDRESS"
	PIIName          PIIKind = "NAME"
	PIIEmail         PIIKind = "EMAIL"
	PIIPhone         PIIKind = "PHONE"
	PIIServiceNumber PIIKind = "SERVICE_NUMBER"
	PIIVAFileNumber  PIIKind = "VA_FILE_NUMBER"
	PIIOther         PIIKind = "OTHER"
)

// PIISource names which detection signal produced a finding.
type PIISource string

const (
	PIISourcePattern      PIISource = "pattern"
	PIISourceClassifier   PIISource = "classifier"
	PIISourceAlwaysRedact PIISource = "always_redact"
)

// Span is a half-open byte range [Start, End) into the OCR text buffer.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PIIFinding is immutable once recorded on a DocumentRecord.
type PIIFinding struct {
	Kind       PIIKind   `json:"kind" validate:"required"`
	Span       *Span     `json:"span,omitempty"`
	FieldName  string    `json:"field_name,omitempty"`
	Source     PIISource `json:"source" validate:"required"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// DocumentRecord is the durable, single source of truth for one document's
// progress through the pipeline. Mutated only by the orchestrator and its
// stage workers; read by external HTTP handlers; deleted by the TTL sweep.
type DocumentRecord struct {
	DocumentID      DocumentID            `json:"document_id" validate:"required"`
	OwnerID         string                `json:"owner_id" validate:"required"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	SourceRef       SourceRef             `json:"source_ref" validate:"-"`
	Status          Status                `json:"status" validate:"required"`
	Steps           map[StepName]StepRecord `json:"steps"`
	ExtractedFields map[string]string     `json:"extracted_fields,omitempty"`
	ExtractedTextRef ArtifactRef          `json:"extracted_text_ref,omitempty"`
	TextTruncated   bool                  `json:"text_truncated,omitempty"`
	PIIFindings     []PIIFinding          `json:"pii_findings,omitempty"`
	NoPIIMarker     bool                  `json:"no_pii_marker,omitempty"`
	RedactedRef     ArtifactRef           `json:"redacted_ref,omitempty"`
	InsightsRef     ArtifactRef           `json:"insights_ref,omitempty"`
	ExecutionHandle string                `json:"execution_handle,omitempty"`
	TTL             time.Time             `json:"ttl"`
}

// DeriveStatus computes the monotone status implied by the current Steps
// map: complete iff all non-optional steps are complete; error iff any
// step is error.
func (r *DocumentRecord) DeriveStatus() Status {
	sawError := false
	allComplete := true
	anyStarted := false

	for _, name := range orderedSteps {
		st, ok := r.Steps[name]
		if !ok {
			allComplete = false
			continue
		}
		if st.State == StepError {
			sawError = true
		}
		if st.State != StepComplete {
			allComplete = false
		}
		if st.State != StepPending && st.State != "" {
			anyStarted = true
		}
	}

	switch {
	case sawError:
		return StatusError
	case allComplete:
		return StatusComplete
	case anyStarted:
		return StatusProcessing
	default:
		return StatusPendingUpload
	}
}

// PromptVariant selects a registered prompt family in the Prompt Composer.
type PromptVariant string

const (
	VariantComprehensive     PromptVariant = "dd214_comprehensive"
	VariantLegacyReport      PromptVariant = "legacy_report"
	VariantMetaRecommendations PromptVariant = "meta_recommendations"
	VariantInterviewPrep     PromptVariant = "interview_prep"
	VariantSalaryNegotiation PromptVariant = "salary_negotiation"
)

// AnalysisMethod records how an insight artifact was produced.
type AnalysisMethod string

const (
	AnalysisPrimary  AnalysisMethod = "primary"
	AnalysisFallback AnalysisMethod = "fallback"
)

// InsightArtifact is the consumer-facing contract for generated career
// intelligence. Unknown top-level keys may appear; known sections may be
// absent (consumers must tolerate absence), but the core guarantees the
// named sections exist as at least an empty object.
type InsightArtifact struct {
	GeneratedAt    time.Time      `json:"generated_at"`
	ModelVersion   string         `json:"model_version"`
	AnalysisMethod AnalysisMethod `json:"analysis_method"`
	AnalysisDepth  string         `json:"analysis_depth,omitempty"`

	ExecutiveIntelligenceSummary map[string]any `json:"executive_intelligence_summary"`
	ExtractedProfile             map[string]any `json:"extracted_profile"`
	MarketIntelligence           map[string]any `json:"market_intelligence"`
	CareerRecommendations        []any          `json:"career_recommendations"`
	HiddenStrengthsAnalysis      map[string]any `json:"hidden_strengths_analysis"`
	PsychologicalPreparation     map[string]any `json:"psychological_preparation"`
	CompensationIntelligence     map[string]any `json:"compensation_intelligence"`
	ActionOrientedDeliverables   map[string]any `json:"action_oriented_deliverables"`
	TransitionTimeline           map[string]any `json:"transition_timeline"`

	Extensions map[string]any `json:"extensions,omitempty"`
}

// KnownSections returns the stable section names every insight artifact
// is guaranteed to carry.
func KnownSections() []string {
	return []string{
		"executive_intelligence_summary",
		"extracted_profile",
		"market_intelligence",
		"career_recommendations",
		"hidden_strengths_analysis",
		"psychological_preparation",
		"compensation_intelligence",
		"action_oriented_deliverables",
		"transition_timeline",
	}
}
