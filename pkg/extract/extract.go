package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor pulls a fixed set of DD214 fields out of an OCR line
// sequence. It is a pure function of its input: the same lines always
// produce the same field map, with no I/O and no hidden state.
type Extractor struct{}

// New creates an Extractor. It carries no configuration; every pattern
// is fixed at compile time.
func New() *Extractor {
	return &Extractor{}
}

// branches is the closed vocabulary service_branch must match against,
// checked in declared order so a document mentioning more than one
// (e.g. a cross-reference to a prior service) resolves to the first.
var branches = []string{"ARMY", "NAVY", "AIR FORCE", "MARINE CORPS", "COAST GUARD", "SPACE FORCE"}

// fieldPattern is one candidate regex for a field; patterns for a field
// are tried in declared order and the first match wins.
type fieldPattern struct {
	re *regexp.Regexp
}

func pat(expr string) fieldPattern {
	return fieldPattern{re: regexp.MustCompile(expr)}
}

// fieldPatterns holds the ordered pattern list for every field except
// service_branch (closed vocabulary, handled separately) and the
// derived numeric fields (years of service, experience tier).
var fieldPatterns = map[string][]fieldPattern{
	"name": {
		pat(`(?is)NAME.*?([A-Z]+,?\s+[A-Z]+(?:\s+[A-Z])?)`),
	},
	"ssn": {
		pat(`(?is)SOCIAL SECURITY NUMBER.*?(\d{3}-?\d{2}-?\d{4})`),
	},
	"branch": {
		pat(`(?is)BRANCH OF SERVICE.*?([A-Z][A-Z ]+[A-Z])`),
	},
	"rank": {
		pat(`(?is)GRADE.*?RATE.*?RANK.*?([A-Z0-9-]+)`),
	},
	"grade_rate_rank": {
		pat(`(?is)GRADE.*?RATE.*?RANK.*?([A-Z0-9-]+)`),
	},
	"pay_grade": {
		pat(`(?is)PAY\s*GRADE.*?([EOW]-?\d{1,2})`),
		pat(`(?is)GRADE.*?RATE.*?RANK.*?([EOW]-?\d{1,2})`),
	},
	"home_of_record": {
		pat(`(?is)HOME OF RECORD.*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`),
	},
	"last_duty": {
		pat(`(?is)LAST DUTY (?:ASSIGNMENT|STATION).*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`),
	},
	"mos": {
		pat(`(?is)(?:PRIMARY\s+SPECIALTY|MOS).*?([A-Z0-9]{2,}(?:\s+[A-Z0-9]+)?)`),
	},
	"primary_specialty": {
		pat(`(?is)(?:PRIMARY\s+SPECIALTY|MOS|AFSC|RATE).*?([A-Z0-9]{2,}(?:\s+[A-Z0-9]+)?)`),
	},
	"decorations": {
		pat(`(?is)DECORATIONS.*?MEDALS.*?BADGES.*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`),
	},
	"education": {
		pat(`(?is)EDUCATION.*?LEVEL.*?([A-Z0-9][A-Z0-9 ,.'-]+)`),
	},
	"military_education": {
		pat(`(?is)MILITARY EDUCATION.*?\n?([A-Z0-9][A-Z0-9 ,.'-]+)`),
	},
	"discharge_type": {
		pat(`(?is)(?:TYPE OF (?:SEPARATION|DISCHARGE)).*?([A-Z][A-Z ]+[A-Z])`),
	},
	"character_of_service": {
		pat(`(?is)CHARACTER OF SERVICE.*?(HONORABLE|GENERAL|OTHER\s+THAN\s+HONORABLE|UNDER\s+HONORABLE\s+CONDITIONS|DISHONORABLE)`),
	},
	"separation_code": {
		pat(`(?is)SEPARATION CODE.*?([A-Z0-9]+)`),
	},
	"reentry_code": {
		pat(`(?is)RE(?:ENTRY)?\s*CODE.*?([A-Z0-9]+)`),
	},
	"service_start": {
		pat(`(?is)(?:ENTERED|ENTRY)(?:\s+(?:ACTIVE\s+)?DUTY)?.*?(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{8})`),
	},
	"service_end": {
		pat(`(?is)(?:SEPARATED|SEPARATION|RELEASED).*?(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{8})`),
	},
	"foreign_service": {
		pat(`(?is)FOREIGN SERVICE.*?(\d+\s*(?:YEARS?|YRS?)?.*?\d*\s*(?:MONTHS?|MOS?)?)`),
	},
	"total_service": {
		pat(`(?is)(?:NET ACTIVE SERVICE|TOTAL (?:ACTIVE )?SERVICE)(?:\s+THIS PERIOD)?.*?(\d+\s*(?:YEARS?|YRS?)(?:[\s,]*\d+\s*(?:MONTHS?|MOS?))?|\d+\s*(?:MONTHS?|MOS?)?)`),
	},
}

// navyRatePattern matches a bare two-letter Navy rate abbreviation; it is
// suppressed whenever the same buffer also contains an Army-style
// alphanumeric specialty code, so a lone letter pair never shadows a
// correct NN[A-Z]-shaped specialty.
var navyRatePattern = regexp.MustCompile(`\b[A-Z]{2}\b`)
var armyMOSPattern = regexp.MustCompile(`\b\d{2}[A-Z]\b`)

// Extract concatenates lines into a single newline-joined buffer and
// applies every field's ordered pattern list against it, returning only
// fields that matched a non-empty value.
func (e *Extractor) Extract(lines []string) map[string]string {
	buf := strings.Join(lines, "\n")
	out := make(map[string]string)

	for field, patterns := range fieldPatterns {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(buf)
			if len(m) < 2 {
				continue
			}
			value := strings.TrimSpace(m[1])
			if value == "" {
				continue
			}
			if (field == "mos" || field == "primary_specialty") && isShadowedNavyRate(value, buf) {
				continue
			}
			out[field] = value
			break
		}
	}

	if branch := matchServiceBranch(buf); branch != "" {
		out["service_branch"] = branch
	}

	if duration, ok := out["total_service"]; ok {
		months := ParseServiceDurationMonths(duration)
		out["total_service_months"] = strconv.Itoa(months)
		out["experience_tier"] = ExperienceTier(months)
	}

	return out
}

// isShadowedNavyRate reports whether value is a bare two-letter match
// that should be discarded because the buffer also contains an
// Army-style NN[A-Z] specialty code.
func isShadowedNavyRate(value, buf string) bool {
	return navyRatePattern.MatchString(value) && len(value) == 2 && armyMOSPattern.MatchString(buf)
}

func matchServiceBranch(buf string) string {
	upper := strings.ToUpper(buf)
	for _, b := range branches {
		if strings.Contains(upper, b) {
			return b
		}
	}
	return ""
}

// durationPattern pulls labelled year/month integers out of a single
// concatenated service-duration string, e.g. "4 years, 3 months".
var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*year|(\d+)\s*month`)

// ParseServiceDurationMonths extracts the total months of service from a
// free-form duration string. Either group may be absent; an absent group
// contributes zero.
func ParseServiceDurationMonths(duration string) int {
	years := 0
	months := 0
	for _, m := range durationPattern.FindAllStringSubmatch(duration, -1) {
		if m[1] != "" {
			if v, err := strconv.Atoi(m[1]); err == nil {
				years = v
			}
		}
		if m[2] != "" {
			if v, err := strconv.Atoi(m[2]); err == nil {
				months = v
			}
		}
	}
	return years*12 + months
}

// ExperienceTier buckets total months of service into fixed experience
// tiers.
func ExperienceTier(totalMonths int) string {
	switch {
	case totalMonths < 24:
		return "entry"
	case totalMonths < 48:
		return "junior"
	case totalMonths < 96:
		return "mid"
	case totalMonths < 144:
		return "senior"
	default:
		return "expert"
	}
}
