package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/prompt"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// perCallDeadline bounds a single Converse call; deadline expiry counts
// as a retryable failure.
const perCallDeadline = 30 * time.Second

// maxRetries is the number of additional attempts after the first: a
// call is retried at most twice before falling back.
const maxRetries = 2

// Generator implements orchestrator.InsightsStage. It composes a prompt
// bundle, invokes a Transport with retry-then-fallback semantics, and
// guarantees every known section name is present on the artifact it
// persists.
type Generator struct {
	transport    Transport
	breaker      *gobreaker.CircuitBreaker
	store        *blob.Store
	modelID      string
	modelVersion string
	clock        func() time.Time
}

// NewGenerator wires a Transport to a blob.Store. modelID selects the
// provider-specific model identifier passed on every Converse call;
// modelVersion is recorded on every produced artifact. breakerTimeout
// of 0 selects a 30-second reset timeout.
func NewGenerator(transport Transport, store *blob.Store, modelID, modelVersion string, breakerTimeout time.Duration) *Generator {
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "insights-llm",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})
	return &Generator{
		transport:    transport,
		breaker:      breaker,
		store:        store,
		modelID:      modelID,
		modelVersion: modelVersion,
		clock:        time.Now,
	}
}

// Generate composes the primary comprehensive prompt, invokes the
// model with retry-then-fallback semantics, and persists the resulting
// artifact under insights_ref.
func (g *Generator) Generate(ctx context.Context, record *types.DocumentRecord) (orchestrator.InsightsResult, error) {
	redactedText, err := g.store.Get(record.RedactedRef.Bucket, record.RedactedRef.Key)
	if err != nil {
		return orchestrator.InsightsResult{}, orchestrator.Permanent(fmt.Errorf("reading redacted text: %w", err))
	}
	text := string(redactedText)

	bundle, err := prompt.Compose(types.VariantComprehensive, text, record.ExtractedFields, g.clock(), 0)
	if err != nil {
		return orchestrator.InsightsResult{}, orchestrator.Permanent(fmt.Errorf("composing prompt: %w", err))
	}

	sections, method := g.generateWithFallback(ctx, bundle, text, record.ExtractedFields)

	artifact := buildArtifact(sections, method, g.modelVersion, g.clock())
	artifactJSON, err := json.Marshal(artifact)
	if err != nil {
		return orchestrator.InsightsResult{}, orchestrator.Permanent(fmt.Errorf("marshaling insight artifact: %w", err))
	}

	key := blob.InsightsKey(record.DocumentID)
	if err := g.store.Put(blob.BucketInsights, key, artifactJSON); err != nil {
		return orchestrator.InsightsResult{}, orchestrator.Permanent(fmt.Errorf("writing insight artifact: %w", err))
	}

	return orchestrator.InsightsResult{
		InsightsRef: types.ArtifactRef{Bucket: blob.BucketInsights, Key: key},
		Method:      method,
	}, nil
}

// generateWithFallback invokes the model up to maxRetries+1 times,
// each bounded by perCallDeadline, backing off between attempts. A
// response that can't be parsed as JSON even after salvage counts the
// same as a transport failure for retry purposes. Exhausting every
// attempt returns the statically constructed fallback artifact instead
// of failing the stage.
func (g *Generator) generateWithFallback(ctx context.Context, bundle prompt.Bundle, redactedText string, profile map[string]string) (map[string]any, types.AnalysisMethod) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fallbackSections(redactedText, profile), types.AnalysisFallback
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, perCallDeadline)
		sections, err := g.tryOnce(callCtx, bundle)
		cancel()
		if err == nil {
			return sections, types.AnalysisPrimary
		}
		lastErr = err
		log.WithComponent("insights").Warn().Err(err).Int("attempt", attempt).Msg("insight generation attempt failed")
	}

	log.WithComponent("insights").Error().Err(lastErr).Msg("exhausted retries, emitting fallback artifact")
	return fallbackSections(redactedText, profile), types.AnalysisFallback
}

func (g *Generator) tryOnce(ctx context.Context, bundle prompt.Bundle) (map[string]any, error) {
	timer := metrics.NewTimer()
	result, err := g.breaker.Execute(func() (any, error) {
		return g.transport.Converse(ctx, ConverseRequest{
			ModelID:    g.modelID,
			SystemText: bundle.SystemText,
			Messages:   bundle.Messages,
			Params:     bundle.Params,
		})
	})
	timer.ObserveDurationVec(metrics.LLMCallDuration, "primary")
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.BreakerRejectionsTotal.WithLabelValues("insights-llm").Inc()
		}
		return nil, err
	}

	resp := result.(ConverseResponse)
	return parseResponse(resp.OutputText)
}

// parseResponse strips code-fence markers, parses the result as JSON,
// and on failure attempts a single salvage pass over the first-brace
// to last-brace substring.
func parseResponse(raw string) (map[string]any, error) {
	stripped := stripFences(raw)

	var sections map[string]any
	if err := json.Unmarshal([]byte(stripped), &sections); err == nil {
		return sections, nil
	}

	salvaged, ok := salvageJSON(stripped)
	if !ok {
		return nil, fmt.Errorf("response was not valid JSON even after salvage")
	}
	if err := json.Unmarshal([]byte(salvaged), &sections); err != nil {
		return nil, fmt.Errorf("salvaged response still invalid: %w", err)
	}
	return sections, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func salvageJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// buildArtifact attaches the generation metadata and guarantees every
// known section name is present.
func buildArtifact(sections map[string]any, method types.AnalysisMethod, modelVersion string, generatedAt time.Time) types.InsightArtifact {
	artifact := types.InsightArtifact{
		GeneratedAt:    generatedAt.UTC(),
		ModelVersion:   modelVersion,
		AnalysisMethod: method,
		Extensions:     make(map[string]any),
	}
	if method == types.AnalysisFallback {
		artifact.AnalysisDepth = "fallback"
	} else {
		artifact.AnalysisDepth = "full"
	}

	known := make(map[string]bool)
	for _, name := range types.KnownSections() {
		known[name] = true
	}

	assignSection := func(name string, dst *map[string]any) {
		if v, ok := sections[name].(map[string]any); ok {
			*dst = v
		} else {
			*dst = map[string]any{}
		}
	}
	assignSection("executive_intelligence_summary", &artifact.ExecutiveIntelligenceSummary)
	assignSection("extracted_profile", &artifact.ExtractedProfile)
	assignSection("market_intelligence", &artifact.MarketIntelligence)
	assignSection("hidden_strengths_analysis", &artifact.HiddenStrengthsAnalysis)
	assignSection("psychological_preparation", &artifact.PsychologicalPreparation)
	assignSection("compensation_intelligence", &artifact.CompensationIntelligence)
	assignSection("action_oriented_deliverables", &artifact.ActionOrientedDeliverables)
	assignSection("transition_timeline", &artifact.TransitionTimeline)

	if v, ok := sections["career_recommendations"].([]any); ok {
		artifact.CareerRecommendations = v
	} else {
		artifact.CareerRecommendations = []any{}
	}

	for k, v := range sections {
		if !known[k] && k != "career_recommendations" {
			artifact.Extensions[k] = v
		}
	}

	return artifact
}

// fallbackKeywords are scanned for, case-sensitively, to build a
// best-effort extracted_profile when the model could not be reached or
// its output could not be parsed.
var fallbackKeywords = []string{"ARMY", "NAVY", "AIR FORCE", "MARINE", "COAST GUARD", "SSG", "18D"}

func fallbackSections(redactedText string, profile map[string]string) map[string]any {
	var present []string
	for _, kw := range fallbackKeywords {
		if strings.Contains(redactedText, kw) {
			present = append(present, kw)
		}
	}

	extractedProfile := map[string]any{
		"indicators_found": present,
	}
	for k, v := range profile {
		extractedProfile[k] = v
	}

	return map[string]any{
		"extracted_profile":     extractedProfile,
		"career_recommendations": []any{},
		"action_oriented_deliverables": map[string]any{
			"next_steps": []string{
				"Review your DD214 for accuracy before submitting VA claims.",
				"Schedule a meeting with a Veteran Service Officer.",
				"Update your resume to translate military experience into civilian terms.",
			},
		},
	}
}
