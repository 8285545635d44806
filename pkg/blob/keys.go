package blob

import (
	"fmt"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// Canonical bucket names. Consumers depend on these prefixes — never
// reorganize the key layout without a migration.
const (
	BucketUploads  = "uploads"
	BucketTextract = "textract-results"
	BucketRedacted = "redacted"
	BucketInsights = "insights"
)

// UploadKey returns the key an original upload is stored under.
// Ingress Trigger parses this shape to recover owner_id and document_id.
func UploadKey(ownerID string, documentID types.DocumentID, uploadedAt time.Time, ext string) string {
	return fmt.Sprintf("%s/%d_%s.%s", ownerID, uploadedAt.Unix(), documentID, ext)
}

// FullResultsKey returns the key for the complete paginated OCR block dump.
func FullResultsKey(documentID types.DocumentID) string {
	return fmt.Sprintf("%s/full_results.json", documentID)
}

// FullTextKey returns the key for the plain-text OCR convenience dump.
func FullTextKey(documentID types.DocumentID) string {
	return fmt.Sprintf("%s/full_text.txt", documentID)
}

// ExtractionSummaryKey returns the key for the extracted-fields + stats summary.
func ExtractionSummaryKey(documentID types.DocumentID) string {
	return fmt.Sprintf("%s/extraction_summary.json", documentID)
}

// RedactedKey returns the key for the redacted text artifact.
func RedactedKey(documentID types.DocumentID) string {
	return fmt.Sprintf("%s/dd214_redacted.txt", documentID)
}

// InsightsKey returns the key for the generated insight artifact.
func InsightsKey(documentID types.DocumentID) string {
	return fmt.Sprintf("%s/insights.json", documentID)
}
