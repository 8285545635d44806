// Package validation implements orchestrator.ValidationStage: the
// well-formedness check that runs before any external call is made on
// an uploaded document's behalf.
package validation

import (
	"context"
	"fmt"

	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// defaultMaxByteSize bounds an upload when no override is configured.
const defaultMaxByteSize = 50 * 1024 * 1024

// allowedContentTypes mirrors the extensions the blob key layout
// recognizes: pdf, jpg, jpeg, png.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// Checker implements orchestrator.ValidationStage against content type
// and size alone; there is no external call to make transient, so every
// failure here is stage permanent.
type Checker struct {
	maxByteSize int64
}

// New creates a Checker. maxByteSize of 0 selects defaultMaxByteSize.
func New(maxByteSize int64) *Checker {
	if maxByteSize <= 0 {
		maxByteSize = defaultMaxByteSize
	}
	return &Checker{maxByteSize: maxByteSize}
}

// Validate rejects a source whose content type is not one of the
// formats the blob key layout names, or whose declared size exceeds the
// configured ceiling.
func (c *Checker) Validate(ctx context.Context, source types.SourceRef) error {
	if source.Key == "" {
		return orchestrator.Permanent(fmt.Errorf("source carries no key"))
	}
	if !allowedContentTypes[source.ContentType] {
		return orchestrator.Permanent(fmt.Errorf("unsupported content type %q", source.ContentType))
	}
	if source.ByteSize <= 0 {
		return orchestrator.Permanent(fmt.Errorf("source reports non-positive byte size %d", source.ByteSize))
	}
	if source.ByteSize > c.maxByteSize {
		return orchestrator.Permanent(fmt.Errorf("source size %d exceeds limit %d", source.ByteSize, c.maxByteSize))
	}
	return nil
}
