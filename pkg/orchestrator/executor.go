package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/audit"
	"github.com/cuemby/dd214pipeline/pkg/cluster"
	"github.com/cuemby/dd214pipeline/pkg/events"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/storage"
	"github.com/cuemby/dd214pipeline/pkg/types"
	"github.com/rs/zerolog"
)

// Executor drives one document's DocumentRecord through the pipeline's
// step sequence: validation, ocr, pii_detection, redaction, insights. It
// holds no document state itself — the Record Store is the only source
// of truth, so a restarted process resumes an in-flight execution by
// reading the record back and skipping steps already complete.
//
// Executor never calls os.Exit or log.Fatal; a stage permanent error
// halts the current execution and is returned to the caller, who
// persists status=error and moves on.
type Executor struct {
	store   storage.Store
	broker  *events.Broker
	elector *cluster.Elector
	audit   audit.Sink

	validation ValidationStage
	ocr        OCRStage
	pii        PIIStage
	redaction  RedactionStage
	insights   InsightsStage

	cfg    Config
	logger zerolog.Logger
	stopCh chan struct{}

	// docLocks holds one *sync.Mutex per document currently executing in
	// this process, guarding against two goroutines (e.g. a redelivered
	// ingress event and a retried executor call) driving the same
	// document_id at once. This is defense in depth on top of the
	// store's own compare-and-set: it avoids the two executions
	// interleaving step transitions against each other, not just losing
	// one's write.
	docLocks sync.Map
}

// NewExecutor wires an Executor. elector may be nil for a single-process
// deployment, in which case the TTL sweep always runs on this process.
// auditSink may be audit.NoopSink{} when no audit backend is configured.
func NewExecutor(
	store storage.Store,
	broker *events.Broker,
	elector *cluster.Elector,
	auditSink audit.Sink,
	validation ValidationStage,
	ocr OCRStage,
	pii PIIStage,
	redaction RedactionStage,
	insights InsightsStage,
	cfg Config,
) *Executor {
	return &Executor{
		store:      store,
		broker:     broker,
		elector:    elector,
		audit:      auditSink,
		validation: validation,
		ocr:        ocr,
		pii:        pii,
		redaction:  redaction,
		insights:   insights,
		cfg:        cfg,
		logger:     log.WithComponent("orchestrator"),
		stopCh:     make(chan struct{}),
	}
}

// Run drives documentID's record through every remaining step, returning
// nil once the record reaches status=complete, or the error that halted
// the execution. Run is safe to call again for the same document: steps
// already complete are skipped, and an in-progress OCR job is resumed
// from its persisted job handle rather than restarted.
func (e *Executor) Run(ctx context.Context, documentID types.DocumentID) error {
	unlock := e.lockDocument(documentID)
	defer unlock()

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.ExecutionBudget)
	defer cancel()

	logger := e.logger.With().Str("document_id", string(documentID)).Logger()

	for {
		record, err := e.store.Get(documentID)
		if err != nil {
			return fmt.Errorf("loading record: %w", err)
		}

		step, ok := nextStep(record)
		if !ok {
			return nil
		}

		if ctxErr := execCtx.Err(); ctxErr != nil {
			err := TimeoutErr(fmt.Errorf("execution stopped before step %s: %w", step, ctxErr))
			e.markError(record, step, err)
			e.recordFailure(record, step, err)
			return err
		}

		if err := e.runStep(execCtx, record, step); err != nil {
			logger.Error().Err(err).Str("step", string(step)).Msg("execution halted")
			e.recordFailure(record, step, err)
			return err
		}
	}
}

// lockDocument acquires the in-process mutex for documentID, creating it
// on first use, and returns a func to release it. The lock entry itself
// is never removed from docLocks: documents are re-executed often enough
// (resumed after a restart, retried by the ingress trigger) that
// reusing the same *sync.Mutex is simpler than reference-counting its
// lifetime, and the number of distinct document IDs a process ever
// touches is bounded by what it actually processes.
func (e *Executor) lockDocument(documentID types.DocumentID) func() {
	value, _ := e.docLocks.LoadOrStore(documentID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// nextStep returns the first step in canonical order that is not yet
// complete, per the step-skipping resumability rule: a step already
// marked complete with its artifact pointer set is never repeated.
func nextStep(record *types.DocumentRecord) (types.StepName, bool) {
	for _, step := range types.OrderedSteps() {
		if step == types.StepUpload {
			continue // the Ingress Trigger owns this step
		}
		if stepSatisfied(record, step) {
			continue
		}
		return step, true
	}
	return "", false
}

// stepSatisfied reports whether step can be skipped: its StepRecord is
// complete and, where the step produces an artifact, the artifact
// pointer is actually set. This guards against a record whose state was
// marked complete but whose artifact write never landed.
func stepSatisfied(record *types.DocumentRecord, step types.StepName) bool {
	sr, ok := record.Steps[step]
	if !ok || sr.State != types.StepComplete {
		return false
	}
	switch step {
	case types.StepOCR:
		return record.ExtractedTextRef.IsSet()
	case types.StepPIIDetection:
		return record.NoPIIMarker || len(record.PIIFindings) > 0
	case types.StepRedaction:
		return record.RedactedRef.IsSet()
	case types.StepInsights:
		return record.InsightsRef.IsSet()
	default:
		return true
	}
}

func (e *Executor) runStep(ctx context.Context, record *types.DocumentRecord, step types.StepName) error {
	switch step {
	case types.StepValidation:
		return e.withRetry(ctx, step, func(ctx context.Context) error {
			return e.doValidation(ctx, record)
		})
	case types.StepOCR:
		return e.doOCR(ctx, record)
	case types.StepPIIDetection:
		return e.withRetry(ctx, step, func(ctx context.Context) error {
			return e.doPII(ctx, record)
		})
	case types.StepRedaction:
		return e.withRetry(ctx, step, func(ctx context.Context) error {
			return e.doRedaction(ctx, record)
		})
	case types.StepInsights:
		return e.withRetry(ctx, step, func(ctx context.Context) error {
			return e.doInsights(ctx, record)
		})
	default:
		return Permanent(fmt.Errorf("unknown step %q", step))
	}
}

// withRetry runs fn, retrying with jittered exponential backoff while fn
// returns a transient-external StageError, up to cfg.MaxStageRetries.
// Any other kind of error (or a plain error, treated as permanent) is
// returned immediately without retry.
func (e *Executor) withRetry(ctx context.Context, step types.StepName, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errKind(err) != KindTransientExternal {
			return err
		}
		lastErr = err
		if attempt >= e.cfg.MaxStageRetries {
			return Permanent(fmt.Errorf("step %s exceeded retry cap: %w", step, lastErr))
		}
		metrics.StepRetriesTotal.WithLabelValues(string(step), errClass(err)).Inc()
		if waitErr := e.backoff(ctx, attempt); waitErr != nil {
			return waitErr
		}
	}
}

func (e *Executor) backoff(ctx context.Context, attempt int) error {
	delay := jitteredBackoff(e.cfg.RetryBaseDelay, attempt)
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return TimeoutErr(ctx.Err())
	}
}

// jitteredBackoff doubles the base delay per attempt and adds up to 50%
// random jitter, to avoid every stuck execution retrying in lockstep.
func jitteredBackoff(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}

// --- step implementations ---

func (e *Executor) doValidation(ctx context.Context, record *types.DocumentRecord) error {
	e.markInProgress(record, types.StepValidation)
	if err := e.validation.Validate(ctx, record.SourceRef); err != nil {
		e.markError(record, types.StepValidation, err)
		return err
	}
	e.markComplete(record, types.StepValidation, nil)
	return nil
}

func (e *Executor) doOCR(ctx context.Context, record *types.DocumentRecord) error {
	step := record.Steps[types.StepOCR]
	jobHandle := step.JobHandle
	startedAt := step.StartedAt

	if jobHandle == "" {
		handle, err := e.withRetryHandle(ctx, types.StepOCR, func(ctx context.Context) (string, error) {
			return e.ocr.StartJob(ctx, record.SourceRef)
		})
		if err != nil {
			e.markError(record, types.StepOCR, err)
			return err
		}
		jobHandle = handle
		record = e.markOCRStarted(record, jobHandle)
		startedAt = record.Steps[types.StepOCR].StartedAt
	}
	if startedAt == nil {
		now := time.Now()
		startedAt = &now
	}

	ceiling := startedAt.Add(e.cfg.OCRPollCeiling)

	for {
		if time.Now().After(ceiling) {
			err := TimeoutErr(fmt.Errorf("ocr job %s did not complete within %s", jobHandle, e.cfg.OCRPollCeiling))
			e.markError(record, types.StepOCR, err)
			return err
		}

		result, done, err := e.ocr.PollJob(ctx, jobHandle)
		if err != nil {
			if errKind(err) != KindTransientExternal {
				e.markError(record, types.StepOCR, err)
				return err
			}
			metrics.StepRetriesTotal.WithLabelValues(string(types.StepOCR), errClass(err)).Inc()
		} else if done {
			e.markComplete(record, types.StepOCR, func(r *types.DocumentRecord) {
				r.ExtractedTextRef = result.TextRef
				r.TextTruncated = result.TextTruncated
				r.ExtractedFields = result.ExtractedFields
			})
			return nil
		}

		select {
		case <-time.After(e.cfg.OCRPollInterval):
		case <-ctx.Done():
			err := TimeoutErr(ctx.Err())
			e.markError(record, types.StepOCR, err)
			return err
		}
	}
}

func (e *Executor) withRetryHandle(ctx context.Context, step types.StepName, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		handle, err := fn(ctx)
		if err == nil {
			return handle, nil
		}
		if errKind(err) != KindTransientExternal {
			return "", err
		}
		lastErr = err
		if attempt >= e.cfg.MaxStageRetries {
			return "", Permanent(fmt.Errorf("step %s exceeded retry cap: %w", step, lastErr))
		}
		metrics.StepRetriesTotal.WithLabelValues(string(step), errClass(err)).Inc()
		if waitErr := e.backoff(ctx, attempt); waitErr != nil {
			return "", waitErr
		}
	}
}

func (e *Executor) doPII(ctx context.Context, record *types.DocumentRecord) error {
	e.markInProgress(record, types.StepPIIDetection)
	result, err := e.pii.Detect(ctx, record.ExtractedTextRef)
	if err != nil {
		e.markError(record, types.StepPIIDetection, err)
		return err
	}
	e.markComplete(record, types.StepPIIDetection, func(r *types.DocumentRecord) {
		r.PIIFindings = result.Findings
		r.NoPIIMarker = result.NoPIIMarker
	})
	return nil
}

func (e *Executor) doRedaction(ctx context.Context, record *types.DocumentRecord) error {
	e.markInProgress(record, types.StepRedaction)
	ref, err := e.redaction.Redact(ctx, record.ExtractedTextRef, record.PIIFindings)
	if err != nil {
		e.markError(record, types.StepRedaction, err)
		return err
	}
	e.markComplete(record, types.StepRedaction, func(r *types.DocumentRecord) {
		r.RedactedRef = ref
	})
	return nil
}

func (e *Executor) doInsights(ctx context.Context, record *types.DocumentRecord) error {
	e.markInProgress(record, types.StepInsights)
	timer := metrics.NewTimer()
	result, err := e.insights.Generate(ctx, record)
	if err != nil {
		e.markError(record, types.StepInsights, err)
		return err
	}
	timer.ObserveDurationVec(metrics.LLMCallDuration, string(result.Method))
	if result.Method == types.AnalysisFallback {
		metrics.LLMFallbackArtifactsTotal.Inc()
	}
	e.markComplete(record, types.StepInsights, func(r *types.DocumentRecord) {
		r.InsightsRef = result.InsightsRef
	})
	return nil
}

// --- record mutation helpers ---

// withCAS applies mutate to record and persists it, re-reading and
// reapplying on a compare-and-set conflict up to cfg.CASRetryLimit
// times. The returned record is always the one actually persisted.
func (e *Executor) withCAS(record *types.DocumentRecord, mutate func(*types.DocumentRecord)) *types.DocumentRecord {
	current := record
	for attempt := 0; attempt < e.cfg.CASRetryLimit; attempt++ {
		expected := current.UpdatedAt
		mutate(current)
		current.Status = current.DeriveStatus()
		current.UpdatedAt = time.Now()

		err := e.store.Update(current, expected)
		if err == nil {
			return current
		}
		if !errors.Is(err, storage.ErrConflict) {
			e.logger.Error().Err(err).Str("document_id", string(current.DocumentID)).Msg("failed to persist record")
			return current
		}

		fresh, getErr := e.store.Get(current.DocumentID)
		if getErr != nil {
			e.logger.Error().Err(getErr).Str("document_id", string(current.DocumentID)).Msg("failed to reload record after conflict")
			return current
		}
		current = fresh
	}
	e.logger.Error().Str("document_id", string(current.DocumentID)).Msg("exceeded compare-and-set retry limit")
	return current
}

// checkTransition enforces types.StepState.CanTransition at every point
// the executor mutates a step's state, logging rather than halting: by
// construction the caller always holds a legal predecessor state, so a
// failed check here means a future change to the step sequence broke that
// assumption, not that this execution should be aborted mid-step.
func (e *Executor) checkTransition(documentID types.DocumentID, step types.StepName, current, next types.StepState) {
	if !current.CanTransition(next) {
		e.logger.Error().
			Str("document_id", string(documentID)).
			Str("step", string(step)).
			Str("from", string(current)).
			Str("to", string(next)).
			Msg("illegal step state transition")
	}
}

func (e *Executor) markInProgress(record *types.DocumentRecord, step types.StepName) {
	now := time.Now()
	e.withCAS(record, func(r *types.DocumentRecord) {
		sr := r.Steps[step]
		e.checkTransition(r.DocumentID, step, sr.State, types.StepInProgress)
		sr.State = types.StepInProgress
		if sr.StartedAt == nil {
			sr.StartedAt = &now
		}
		if r.Steps == nil {
			r.Steps = map[types.StepName]types.StepRecord{}
		}
		r.Steps[step] = sr
	})
	metrics.StepTransitionsTotal.WithLabelValues(string(step), string(types.StepInProgress)).Inc()
	e.publish(events.EventStepStarted, record, step, "")
	e.recordAudit(record, step, types.StepInProgress, "")
}

// markOCRStarted records the job handle for a freshly started OCR job
// without changing its state out of in_progress; the caller already
// called markInProgress's equivalent transition via this persisted
// write, since OCR has no separate "started" StepState of its own —
// job_handle on the in_progress record is what distinguishes "started,
// awaiting first poll" from "not yet started".
func (e *Executor) markOCRStarted(record *types.DocumentRecord, jobHandle string) *types.DocumentRecord {
	now := time.Now()
	return e.withCAS(record, func(r *types.DocumentRecord) {
		sr := r.Steps[types.StepOCR]
		e.checkTransition(r.DocumentID, types.StepOCR, sr.State, types.StepInProgress)
		sr.State = types.StepInProgress
		if sr.StartedAt == nil {
			sr.StartedAt = &now
		}
		sr.JobHandle = jobHandle
		if r.Steps == nil {
			r.Steps = map[types.StepName]types.StepRecord{}
		}
		r.Steps[types.StepOCR] = sr
	})
}

func (e *Executor) markComplete(record *types.DocumentRecord, step types.StepName, extra func(*types.DocumentRecord)) {
	sr := record.Steps[step]
	var startedAt time.Time
	if sr.StartedAt != nil {
		startedAt = *sr.StartedAt
	}

	e.withCAS(record, func(r *types.DocumentRecord) {
		if extra != nil {
			extra(r)
		}
		now := time.Now()
		srNow := r.Steps[step]
		e.checkTransition(r.DocumentID, step, srNow.State, types.StepComplete)
		srNow.State = types.StepComplete
		srNow.CompletedAt = &now
		if r.Steps == nil {
			r.Steps = map[types.StepName]types.StepRecord{}
		}
		r.Steps[step] = srNow
	})

	if !startedAt.IsZero() {
		metrics.StepDuration.WithLabelValues(string(step)).Observe(time.Since(startedAt).Seconds())
	}
	metrics.StepTransitionsTotal.WithLabelValues(string(step), string(types.StepComplete)).Inc()
	e.publish(events.EventStepCompleted, record, step, "")
	e.recordAudit(record, step, types.StepComplete, "")

	if step == types.StepInsights {
		metrics.DocumentsCompleted.Inc()
	}
}

func (e *Executor) markError(record *types.DocumentRecord, step types.StepName, err error) {
	e.withCAS(record, func(r *types.DocumentRecord) {
		now := time.Now()
		sr := r.Steps[step]
		e.checkTransition(r.DocumentID, step, sr.State, types.StepError)
		sr.State = types.StepError
		sr.ErrorMessage = err.Error()
		sr.CompletedAt = &now
		if r.Steps == nil {
			r.Steps = map[types.StepName]types.StepRecord{}
		}
		r.Steps[step] = sr
	})
	metrics.StepTransitionsTotal.WithLabelValues(string(step), string(types.StepError)).Inc()
	e.publish(events.EventStepFailed, record, step, err.Error())
	e.recordAudit(record, step, types.StepError, err.Error())
}

// recordAudit appends a step-transition entry to the audit sink. Audit
// failures are logged, not propagated — losing an audit row must never
// halt an execution that otherwise succeeded.
func (e *Executor) recordAudit(record *types.DocumentRecord, step types.StepName, state types.StepState, message string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(context.Background(), audit.Entry{
		DocumentID: record.DocumentID,
		Step:       step,
		State:      state,
		Message:    message,
		OccurredAt: time.Now(),
	}); err != nil {
		e.logger.Warn().Err(err).Str("document_id", string(record.DocumentID)).Str("step", string(step)).Msg("failed to record audit entry")
	}
}

func (e *Executor) recordFailure(record *types.DocumentRecord, step types.StepName, err error) {
	metrics.DocumentsFailed.WithLabelValues(string(step)).Inc()
}

func (e *Executor) publish(eventType events.EventType, record *types.DocumentRecord, step types.StepName, message string) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(&events.Event{
		Type:       eventType,
		DocumentID: string(record.DocumentID),
		Message:    message,
		Metadata:   map[string]string{"step": string(step)},
	})
}
