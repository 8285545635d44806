package pii

import "context"

// ClassifierFinding is one entity an external classifier reported.
type ClassifierFinding struct {
	Kind       string
	Start      int
	End        int
	Confidence float64
}

// Classifier is the optional, feature-flagged external entity
// recognizer. Detect is given at most classifierInputLimit characters
// of redacted-source text and must honor ctx cancellation: a Detector
// caller bounds the wait with a timeout and falls back to the
// deterministic always-redact set on either a timeout or a hard
// failure, so Detect need not itself retry.
type Classifier interface {
	Detect(ctx context.Context, text string) ([]ClassifierFinding, error)
}

// classifierInputLimit is the slice of text sent to the classifier; the
// first 5,000 characters are a sufficient slice for entity recognition.
const classifierInputLimit = 5000
