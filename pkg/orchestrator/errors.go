package orchestrator

import (
	"errors"
	"fmt"
)

// ErrKind names one of the error kinds the pipeline distinguishes, not a
// Go type: stages return a *StageError tagged with the kind that decides
// how the executor responds, rather than relying on type assertions
// against concrete error types.
type ErrKind string

const (
	// KindTransientExternal covers network failures, throttling, and 5xx
	// responses. Retried locally with jittered exponential backoff up to
	// a per-stage cap, then escalated to KindStagePermanent.
	KindTransientExternal ErrKind = "transient_external"

	// KindStagePermanent covers 4xx responses, schema-invalid payloads,
	// and missing input artifacts. Never retried.
	KindStagePermanent ErrKind = "stage_permanent"

	// KindTimeout covers a call or stage that exceeded its deadline. It
	// is treated as permanent for the current execution, but a later
	// execution may retry the same stage since artifact keys are
	// content-addressed by document, not by execution.
	KindTimeout ErrKind = "timeout"

	// KindConfigurationError covers a missing required parameter at
	// startup. Fatal; a worker carrying this should refuse to start.
	KindConfigurationError ErrKind = "configuration_error"
)

// StageError is the error shape every stage implementation returns. The
// executor inspects Kind to decide whether to retry, escalate, or halt;
// it never pattern-matches on the wrapped error's concrete type.
type StageError struct {
	Kind ErrKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a KindTransientExternal StageError.
func Transient(err error) *StageError {
	return &StageError{Kind: KindTransientExternal, Err: err}
}

// Permanent wraps err as a KindStagePermanent StageError.
func Permanent(err error) *StageError {
	return &StageError{Kind: KindStagePermanent, Err: err}
}

// TimeoutErr wraps err as a KindTimeout StageError.
func TimeoutErr(err error) *StageError {
	return &StageError{Kind: KindTimeout, Err: err}
}

// ConfigError wraps err as a KindConfigurationError StageError.
func ConfigError(err error) *StageError {
	return &StageError{Kind: KindConfigurationError, Err: err}
}

// errKind returns the StageError kind carried by err, or "" if err does
// not carry one (a plain error is treated as stage-permanent by callers).
func errKind(err error) ErrKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// errClass returns a label suitable for the StepRetriesTotal error_class
// metric dimension.
func errClass(err error) string {
	if k := errKind(err); k != "" {
		return string(k)
	}
	return "unknown"
}
