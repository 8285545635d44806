package pii

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/orchestrator"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// defaultClassifierWait bounds how long Detect waits on an optional
// Classifier before falling back to the deterministic always-redact set.
const defaultClassifierWait = 5 * time.Second

// Detector implements orchestrator.PIIStage. Pattern rules and the
// always-redact field list run unconditionally; an optional Classifier
// contributes additional findings within a bounded wait, behind a
// breaker so a known-bad classifier stops being probed every call.
type Detector struct {
	store          *blob.Store
	classifier     Classifier
	classifierWait time.Duration
	breaker        *gobreaker.CircuitBreaker
}

// NewDetector creates a Detector. classifier may be nil to disable the
// optional signal entirely, in which case the detector relies solely on
// pattern rules and the always-redact guarantee. breakerTimeout of 0
// selects a 30-second reset timeout.
func NewDetector(store *blob.Store, classifier Classifier, breakerTimeout time.Duration) *Detector {
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pii-classifier",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})
	return &Detector{store: store, classifier: classifier, classifierWait: defaultClassifierWait, breaker: breaker}
}

// WithClassifierWait overrides the bounded wait duration; used by tests
// to avoid a multi-second sleep on the fallback path.
func (d *Detector) WithClassifierWait(wait time.Duration) *Detector {
	d.classifierWait = wait
	return d
}

// Detect reads the extracted text behind textRef and returns the
// combined finding set. It never fails the stage on a classifier
// timeout or error; the always-redact guarantee means a PIIResult is
// always produced.
func (d *Detector) Detect(ctx context.Context, textRef types.ArtifactRef) (orchestrator.PIIResult, error) {
	raw, err := d.store.Get(textRef.Bucket, textRef.Key)
	if err != nil {
		return orchestrator.PIIResult{}, orchestrator.Permanent(err)
	}
	buf := string(raw)

	findings := detectGeneral(buf)
	structural, matched := detectStructural(buf)
	findings = append(findings, structural...)
	findings = append(findings, detectAlwaysRedact(buf, matched)...)

	if d.classifier != nil {
		classifierFindings := d.runClassifier(ctx, buf)
		findings = append(findings, classifierFindings...)
	}

	return orchestrator.PIIResult{
		Findings:    findings,
		NoPIIMarker: len(findings) == 0,
	}, nil
}

// runClassifier invokes the optional classifier within a bounded wait.
// A timeout or hard failure is swallowed: the always-redact findings
// already computed by Detect are the fallback, treating "no classifier
// available" and "classifier timed out" identically.
func (d *Detector) runClassifier(ctx context.Context, buf string) []types.PIIFinding {
	input := buf
	if len(input) > classifierInputLimit {
		input = input[:classifierInputLimit]
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.classifierWait)
	defer cancel()

	timer := metrics.NewTimer()
	raw, err := d.breaker.Execute(func() (any, error) {
		return d.classifier.Detect(waitCtx, input)
	})
	timer.ObserveDuration(metrics.PIIClassifierCallDuration)
	if err != nil {
		metrics.PIIAlwaysRedactFallbackTotal.Inc()
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			log.WithComponent("pii").Warn().Err(err).Msg("classifier breaker open, relying on always-redact fallback")
		} else {
			log.WithComponent("pii").Warn().Err(err).Msg("classifier unavailable, relying on always-redact fallback")
		}
		return nil
	}
	results := raw.([]ClassifierFinding)

	out := make([]types.PIIFinding, 0, len(results))
	for _, r := range results {
		span := types.Span{Start: r.Start, End: r.End}
		confidence := r.Confidence
		out = append(out, types.PIIFinding{
			Kind:       classifierKind(r.Kind),
			Span:       &span,
			Source:     types.PIISourceClassifier,
			Confidence: &confidence,
		})
	}
	return out
}

func classifierKind(kind string) types.PIIKind {
	switch kind {
	case string(types.PIISSN):
		return types.PIISSN
	case string(types.PIIDoDID):
		return types.PIIDoDID
	case string(types.PIIDateOfBirth):
		return types.PIIDateOfBirth
	case string(types.PIIAddress):
		return types.PIIAddress
	case string(types.PIIName):
		return types.PIIName
	case string(types.PIIEmail):
		return types.PIIEmail
	case string(types.PIIPhone):
		return types.PIIPhone
	case string(types.PIIServiceNumber):
		return types.PIIServiceNumber
	case string(types.PIIVAFileNumber):
		return types.PIIVAFileNumber
	default:
		return types.PIIOther
	}
}
