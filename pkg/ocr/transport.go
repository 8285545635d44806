package ocr

import (
	"context"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// BlockType enumerates the block shapes the OCR service can return.
type BlockType string

const (
	BlockLine BlockType = "LINE"
	BlockWord BlockType = "WORD"
	BlockPage BlockType = "PAGE"
)

// Block is one OCR-detected element: a line, word, or page marker with
// optional confidence and geometry.
type Block struct {
	Type       BlockType `json:"type"`
	Text       string    `json:"text,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	Geometry   any       `json:"geometry,omitempty"`
}

// JobStatus is the outcome of a single Poll call.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusSucceeded
	StatusFailed
)

// Transport is the external OCR service boundary. Implementations submit
// an async job, report its status, and paginate its result blocks one
// page at a time; the Adapter owns pagination and persistence.
type Transport interface {
	// Start submits source for asynchronous OCR and returns a
	// provider-assigned job handle.
	Start(ctx context.Context, source types.SourceRef) (providerHandle string, err error)

	// Poll reports the job's current state. reason is populated only
	// when status is StatusFailed.
	Poll(ctx context.Context, providerHandle string) (status JobStatus, reason string, err error)

	// FetchPage returns one page of blocks starting at continuationToken
	// (empty for the first page) and the token for the next page (empty
	// when no further pages remain).
	FetchPage(ctx context.Context, providerHandle, continuationToken string) (blocks []Block, nextToken string, err error)
}
