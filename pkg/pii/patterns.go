package pii

import (
	"regexp"
	"strings"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// GeneralPattern pairs a compiled regex with the PII kind it detects.
type GeneralPattern struct {
	Kind types.PIIKind
	Re   *regexp.Regexp
}

// GeneralPatterns are always-on regexes independent of DD214 field
// labels. Exported so pkg/redact can apply the identical set of
// patterns during its own general replacement pass.
var GeneralPatterns = []GeneralPattern{
	{types.PIISSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{types.PIISSN, regexp.MustCompile(`\b\d{9}\b`)},
	{types.PIIDoDID, regexp.MustCompile(`\b\d{10}\b`)},
	{types.PIIPhone, regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{types.PIIEmail, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{types.PIIAddress, regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)},
}

// StructuralPattern is a DD214 label-anchored pattern: it looks for a
// field label in the line stream and captures the value that follows,
// the same idiom extract.Extractor uses for its own field map. Exported
// so pkg/redact can apply the identical label anchors during its
// structural replacement pass.
type StructuralPattern struct {
	FieldName string
	Kind      types.PIIKind
	Re        *regexp.Regexp
}

var StructuralPatterns = []StructuralPattern{
	{"ssn", types.PIISSN, regexp.MustCompile(`(?is)SOCIAL SECURITY NUMBER.*?(\d{3}-?\d{2}-?\d{4})`)},
	{"date of birth", types.PIIDateOfBirth, regexp.MustCompile(`(?is)DATE OF BIRTH.*?(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`)},
	{"home of record", types.PIIAddress, regexp.MustCompile(`(?is)HOME OF RECORD.*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`)},
	{"mailing address", types.PIIAddress, regexp.MustCompile(`(?is)MAILING ADDRESS.*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`)},
	{"nearest relative", types.PIIName, regexp.MustCompile(`(?is)NEAREST RELATIVE.*?\n?([A-Z][A-Z ,.'-]+)`)},
	{"place of birth", types.PIIAddress, regexp.MustCompile(`(?is)PLACE OF BIRTH.*?\n?([A-Z][A-Z ,.'-]+)`)},
}

// AlwaysRedactFields guarantees coverage for these DD214 field labels
// even when no pattern inside them produces a match.
var AlwaysRedactFields = []string{
	"social security number", "ssn", "home of record", "address",
	"date of birth", "dob", "place of birth",
}

// AlwaysRedactKinds maps each always-redact field label to the PII kind
// it is treated as.
var AlwaysRedactKinds = map[string]types.PIIKind{
	"social security number": types.PIISSN,
	"ssn":                    types.PIISSN,
	"home of record":         types.PIIAddress,
	"address":                types.PIIAddress,
	"date of birth":          types.PIIDateOfBirth,
	"dob":                    types.PIIDateOfBirth,
	"place of birth":         types.PIIAddress,
}

// detectGeneral applies the always-on general patterns over the full
// text buffer.
func detectGeneral(buf string) []types.PIIFinding {
	var out []types.PIIFinding
	for _, p := range GeneralPatterns {
		for _, loc := range p.Re.FindAllStringIndex(buf, -1) {
			span := types.Span{Start: loc[0], End: loc[1]}
			out = append(out, types.PIIFinding{
				Kind:   p.Kind,
				Span:   &span,
				Source: types.PIISourcePattern,
			})
		}
	}
	return out
}

// detectStructural applies label-anchored patterns over the buffer,
// returning the set of field names that produced a finding so the
// always-redact pass can skip them.
func detectStructural(buf string) ([]types.PIIFinding, map[string]bool) {
	var out []types.PIIFinding
	matched := make(map[string]bool)
	for _, p := range StructuralPatterns {
		loc := p.Re.FindStringSubmatchIndex(buf)
		if loc == nil || len(loc) < 4 {
			continue
		}
		value := strings.TrimSpace(buf[loc[2]:loc[3]])
		if value == "" {
			continue
		}
		span := types.Span{Start: loc[2], End: loc[3]}
		out = append(out, types.PIIFinding{
			Kind:      p.Kind,
			Span:      &span,
			FieldName: p.FieldName,
			Source:    types.PIISourcePattern,
		})
		matched[p.FieldName] = true
	}
	return out, matched
}

// detectAlwaysRedact forces a finding for every always-redact field
// label present in the buffer that structural detection did not already
// cover, guaranteeing minimum redaction coverage.
func detectAlwaysRedact(buf string, alreadyMatched map[string]bool) []types.PIIFinding {
	upper := strings.ToUpper(buf)
	var out []types.PIIFinding
	for _, field := range AlwaysRedactFields {
		if alreadyMatched[field] {
			continue
		}
		if !strings.Contains(upper, strings.ToUpper(field)) {
			continue
		}
		out = append(out, types.PIIFinding{
			Kind:      AlwaysRedactKinds[field],
			FieldName: field,
			Source:    types.PIISourceAlwaysRedact,
		})
		alreadyMatched[field] = true
	}
	return out
}
