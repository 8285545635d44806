package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// inputCharacterCeiling bounds how much redacted text is embedded in a
// composed prompt. Text beyond this ceiling is truncated and the
// Bundle's Truncated flag is set.
const inputCharacterCeiling = 12000

// InferenceParams pins the sampling knobs a variant calls the LLM with.
type InferenceParams struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

// variantSpec is one registered prompt family: its system text template,
// inference parameters, and whether it samples non-deterministically.
type variantSpec struct {
	systemText      string
	params          InferenceParams
	nondeterministic bool
}

var registry = map[types.PromptVariant]variantSpec{
	types.VariantComprehensive: {
		systemText: "You are a career transition analyst producing a comprehensive intelligence report for a separating or separated service member, based strictly on the redacted DD214 text provided.",
		params:     InferenceParams{MaxOutputTokens: 8000, Temperature: 0.8, TopP: 0.95},
	},
	types.VariantLegacyReport: {
		systemText: "You produce a long-form narrative transition report in the style of a traditional career counseling writeup, based strictly on the redacted DD214 text provided.",
		params:     InferenceParams{MaxOutputTokens: 5000, Temperature: 0.9, TopP: 0.95},
	},
	types.VariantMetaRecommendations: {
		systemText: "You produce a compact set of meta-level recommendations summarizing the highest-leverage next steps for this service member's transition.",
		params:           InferenceParams{MaxOutputTokens: 2000, Temperature: 0.7, TopP: 0.9},
		nondeterministic: true,
	},
	types.VariantInterviewPrep: {
		systemText: "You produce interview preparation guidance tailored to this service member's military background, translating their experience into civilian interview narratives.",
		params:           InferenceParams{MaxOutputTokens: 4000, Temperature: 0.85, TopP: 0.95},
		nondeterministic: true,
	},
	types.VariantSalaryNegotiation: {
		systemText: "You produce salary negotiation guidance grounded in this service member's rank, specialty, and years of service.",
		params:           InferenceParams{MaxOutputTokens: 3000, Temperature: 0.75, TopP: 0.9},
		nondeterministic: true,
	},
}

// Bundle is the composer's sole output: everything the Insight
// Generator's transport adapter needs to invoke the model, and nothing
// about how that invocation happens.
type Bundle struct {
	SystemText string
	Messages   []string
	Params     InferenceParams
	Truncated  bool
}

// rotatingContextTokens are interpolated into non-deterministic
// variants' system text so repeated runs over the same document don't
// produce byte-identical prompts, while every deterministic variant
// stays exactly reproducible for tests.
type rotatingContextTokens struct {
	date      string
	quarter   string
	lens      string
	pathway   string
}

var perspectiveLenses = []string{"pragmatic", "ambitious", "risk-averse", "exploratory"}
var careerPathways = []string{"private sector", "federal service", "entrepreneurship", "further education"}

// Compose builds a Bundle for the given variant from redacted text and
// an optional profile snapshot (the extracted field map). seed selects
// among the rotating context tokens for non-deterministic variants; the
// caller is responsible for varying it across calls (e.g. a per-call
// counter), since this function itself has no hidden state or I/O.
func Compose(variant types.PromptVariant, redactedText string, profile map[string]string, now time.Time, seed int) (Bundle, error) {
	spec, ok := registry[variant]
	if !ok {
		return Bundle{}, fmt.Errorf("unknown prompt variant %q", variant)
	}

	text := redactedText
	truncated := false
	if len(text) > inputCharacterCeiling {
		text = text[:inputCharacterCeiling]
		truncated = true
	}

	systemText := spec.systemText
	if spec.nondeterministic {
		tokens := rotatingTokens(now, seed)
		systemText = fmt.Sprintf("%s\n\nContext: %s, %s. Adopt a %s perspective oriented toward %s.",
			systemText, tokens.date, tokens.quarter, tokens.lens, tokens.pathway)
	}

	var userMessage strings.Builder
	userMessage.WriteString("Redacted DD214 text:\n")
	userMessage.WriteString(text)
	if truncated {
		userMessage.WriteString("\n\n[TRUNCATED: input exceeded the character ceiling]")
	}
	if len(profile) > 0 {
		userMessage.WriteString("\n\nExtracted profile fields:\n")
		keys := make([]string, 0, len(profile))
		for k := range profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&userMessage, "- %s: %s\n", k, profile[k])
		}
	}

	return Bundle{
		SystemText: systemText,
		Messages:   []string{userMessage.String()},
		Params:     spec.params,
		Truncated:  truncated,
	}, nil
}

func rotatingTokens(now time.Time, seed int) rotatingContextTokens {
	quarter := (int(now.Month())-1)/3 + 1
	return rotatingContextTokens{
		date:    now.Format("2006-01-02"),
		quarter: fmt.Sprintf("Q%d", quarter),
		lens:    perspectiveLenses[mod(seed, len(perspectiveLenses))],
		pathway: careerPathways[mod(seed+1, len(careerPathways))],
	}
}

func mod(n, m int) int {
	if m <= 0 {
		return 0
	}
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// Variants returns the canonical registered variant names, in a stable
// declaration order.
func Variants() []types.PromptVariant {
	return []types.PromptVariant{
		types.VariantComprehensive,
		types.VariantLegacyReport,
		types.VariantMetaRecommendations,
		types.VariantInterviewPrep,
		types.VariantSalaryNegotiation,
	}
}
