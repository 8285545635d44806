package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

func TestComposeKnownVariant(t *testing.T) {
	bundle, err := Compose(types.VariantComprehensive, "redacted text here", nil, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if bundle.Params.MaxOutputTokens != 8000 || bundle.Params.Temperature != 0.8 || bundle.Params.TopP != 0.95 {
		t.Errorf("unexpected params for comprehensive: %+v", bundle.Params)
	}
	if len(bundle.Messages) != 1 || !strings.Contains(bundle.Messages[0], "redacted text here") {
		t.Errorf("expected message to contain the redacted text, got %+v", bundle.Messages)
	}
}

func TestComposeUnknownVariant(t *testing.T) {
	_, err := Compose(types.PromptVariant("not_a_variant"), "text", nil, time.Now(), 0)
	if err == nil {
		t.Fatalf("expected an error for an unknown variant")
	}
}

func TestComposeIsDeterministicForFixedVariant(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	first, err := Compose(types.VariantComprehensive, "same text", map[string]string{"branch": "ARMY"}, now, 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	second, err := Compose(types.VariantComprehensive, "same text", map[string]string{"branch": "ARMY"}, now, 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if first.SystemText != second.SystemText || first.Messages[0] != second.Messages[0] {
		t.Errorf("deterministic variant produced different output across calls")
	}
}

func TestComposeNonDeterministicVariantVariesWithSeed(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	a, err := Compose(types.VariantInterviewPrep, "text", nil, now, 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b, err := Compose(types.VariantInterviewPrep, "text", nil, now, 1)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if a.SystemText == b.SystemText {
		t.Errorf("expected rotating context tokens to vary system text across seeds")
	}
}

func TestComposeTruncatesOverCeiling(t *testing.T) {
	longText := strings.Repeat("x", inputCharacterCeiling+500)
	bundle, err := Compose(types.VariantComprehensive, longText, nil, time.Now(), 0)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !bundle.Truncated {
		t.Errorf("expected Truncated=true for over-ceiling input")
	}
	if strings.Contains(bundle.Messages[0], strings.Repeat("x", inputCharacterCeiling+1)) {
		t.Errorf("expected text to be truncated below the ceiling")
	}
}

func TestVariantsReturnsCanonicalFive(t *testing.T) {
	variants := Variants()
	if len(variants) != 5 {
		t.Fatalf("expected 5 canonical variants, got %d", len(variants))
	}
}
