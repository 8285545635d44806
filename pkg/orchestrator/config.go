package orchestrator

import "time"

// Config tunes the executor's retry, polling, and sweep behavior. All
// fields have sane defaults via DefaultConfig; callers typically only
// override what their deployment's external dependencies require.
type Config struct {
	// OCRPollInterval is how often PollJob is called while a job is
	// pending.
	OCRPollInterval time.Duration

	// OCRPollCeiling is the wall-clock budget, measured from when the
	// step entered in_progress, after which a still-pending OCR job is
	// terminated with a timeout error.
	OCRPollCeiling time.Duration

	// ExecutionBudget bounds one call to Run: if the whole execution has
	// not reached Done or Failed within this duration, the in-flight
	// call is cancelled and the current step marked error(timeout).
	ExecutionBudget time.Duration

	// MaxStageRetries is the per-stage cap on transient-error retries
	// before escalating to stage permanent.
	MaxStageRetries int

	// RetryBaseDelay is the base of the jittered exponential backoff
	// between transient retries.
	RetryBaseDelay time.Duration

	// TTLSweepInterval is how often the TTL sweep loop wakes to check
	// for expired records, when StartTTLSweeper is running.
	TTLSweepInterval time.Duration

	// CASRetryLimit bounds the re-read-reapply-retry loop a compare-and-
	// set conflict triggers, so a pathologically hot record can't spin
	// forever.
	CASRetryLimit int
}

// DefaultConfig returns conservative tuning values suitable for a
// single-node deployment with no unusual latency in its dependencies.
func DefaultConfig() Config {
	return Config{
		OCRPollInterval:  5 * time.Second,
		OCRPollCeiling:   5 * time.Minute,
		ExecutionBudget:  10 * time.Minute,
		MaxStageRetries:  5,
		RetryBaseDelay:   250 * time.Millisecond,
		TTLSweepInterval: time.Hour,
		CASRetryLimit:    10,
	}
}
