package redact

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/pii"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

const placeholderText = "Unable to retrieve document text for redaction"

const headerLine = "=== REDACTED DD214 DOCUMENT ==="
const footerLine = "=== END OF REDACTED DD214 DOCUMENT ==="
const sectionRule = "================"

// Redactor implements orchestrator.RedactionStage. It replaces every
// PII-bearing span in the OCR text with a [REDACTED-<KIND>] marker and
// wraps the result in a fixed header/footer.
type Redactor struct {
	store *blob.Store
	clock func() time.Time
}

// NewRedactor creates a Redactor. clock defaults to time.Now; tests may
// override it for deterministic header timestamps.
func NewRedactor(store *blob.Store) *Redactor {
	return &Redactor{store: store, clock: time.Now}
}

// Redact reads the extracted text behind textRef, applies structural
// then general replacements, applies any remaining span findings in
// reverse offset order, and writes the wrapped result to the redacted
// bucket.
func (r *Redactor) Redact(ctx context.Context, textRef types.ArtifactRef, findings []types.PIIFinding) (types.ArtifactRef, error) {
	documentID := documentIDFromKey(textRef.Key)

	raw, err := r.store.Get(textRef.Bucket, textRef.Key)
	if err != nil {
		log.WithComponent("redact").Warn().Err(err).Str("document_id", string(documentID)).Msg("falling back to placeholder redaction")
		return r.writeWrapped(documentID, placeholderText, 0)
	}

	buf := string(raw)
	if isAlreadyRedacted(buf) {
		return types.ArtifactRef{Bucket: blob.BucketRedacted, Key: blob.RedactedKey(documentID)}, nil
	}

	buf, structuralCount := applyStructural(buf)
	buf, generalCount := applyGeneral(buf)
	buf, spanCount := applySpans(buf, findings)

	total := structuralCount + generalCount + spanCount
	return r.writeWrapped(documentID, buf, total)
}

// applyStructural replaces the value following each DD214 field label
// with a [REDACTED-<KIND>] marker, reusing pii's label-anchored
// patterns so detection and redaction never drift apart.
func applyStructural(buf string) (string, int) {
	count := 0
	for _, p := range pii.StructuralPatterns {
		buf = p.Re.ReplaceAllStringFunc(buf, func(match string) string {
			loc := p.Re.FindStringSubmatchIndex(match)
			if loc == nil || len(loc) < 4 {
				return match
			}
			count++
			return match[:loc[2]] + marker(p.Kind) + match[loc[3]:]
		})
	}
	return buf, count
}

// applyGeneral replaces every general pattern match (SSN, DoD ID,
// phone, email, ZIP) with its marker.
func applyGeneral(buf string) (string, int) {
	count := 0
	for _, p := range pii.GeneralPatterns {
		buf = p.Re.ReplaceAllStringFunc(buf, func(match string) string {
			count++
			return marker(p.Kind)
		})
	}
	return buf, count
}

// applySpans replaces any finding that carries a byte span in reverse
// start-offset order so that earlier replacements never shift the
// offsets a later replacement relies on.
func applySpans(buf string, findings []types.PIIFinding) (string, int) {
	spanned := make([]types.PIIFinding, 0, len(findings))
	for _, f := range findings {
		if f.Span != nil {
			spanned = append(spanned, f)
		}
	}
	sort.Slice(spanned, func(i, j int) bool {
		return spanned[i].Span.Start > spanned[j].Span.Start
	})

	count := 0
	for _, f := range spanned {
		start, end := f.Span.Start, f.Span.End
		if start < 0 || end > len(buf) || start >= end {
			continue
		}
		if strings.Contains(buf[start:end], "[REDACTED-") {
			continue
		}
		buf = buf[:start] + marker(f.Kind) + buf[end:]
		count++
	}
	return buf, count
}

func marker(kind types.PIIKind) string {
	return fmt.Sprintf("[REDACTED-%s]", kind)
}

var headerPattern = regexp.MustCompile(`^` + regexp.QuoteMeta(headerLine) + `\n`)

func isAlreadyRedacted(buf string) bool {
	return headerPattern.MatchString(buf)
}

// writeWrapped prepends the fixed header and appends the fixed footer,
// then persists the artifact to the redacted bucket.
func (r *Redactor) writeWrapped(documentID types.DocumentID, body string, findingsRedacted int) (types.ArtifactRef, error) {
	wrapped := wrap(r.clock(), body, findingsRedacted)
	key := blob.RedactedKey(documentID)
	if err := r.store.Put(blob.BucketRedacted, key, []byte(wrapped)); err != nil {
		return types.ArtifactRef{}, orchestrator.Permanent(fmt.Errorf("writing redacted artifact: %w", err))
	}
	return types.ArtifactRef{Bucket: blob.BucketRedacted, Key: key}, nil
}

// wrap produces the documented external artifact format: a fixed header
// block ending in "REDACTED CONTENT:" and a rule line, the redacted
// body, and a matching footer rule/title pair.
func wrap(generatedAt time.Time, body string, findingsRedacted int) string {
	var b strings.Builder
	b.WriteString(headerLine)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "PII Items Redacted: %d\n", findingsRedacted)
	b.WriteString("REDACTED CONTENT:\n")
	b.WriteString(sectionRule)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(sectionRule)
	b.WriteByte('\n')
	b.WriteString(footerLine)
	return b.String()
}

// documentIDFromKey recovers the document ID from a textract-results
// key of the shape {document_id}/full_text.txt.
func documentIDFromKey(key string) types.DocumentID {
	if idx := strings.IndexByte(key, '/'); idx >= 0 {
		return types.DocumentID(key[:idx])
	}
	return types.DocumentID(key)
}
