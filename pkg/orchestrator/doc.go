/*
Package orchestrator drives a document's DocumentRecord through the
pipeline's step sequence and owns the process-wide TTL sweep.

# State Machine

Each document moves through a fixed step sequence:

	validation -> ocr -> pii_detection -> redaction -> insights

Unlike a fixed-tick reconciliation loop that polls every record on an
interval, Executor.Run drives one document's execution to completion (or
to a halting error) in a single call: each step's entry performs its
external call and a Record Store write before advancing, and ocr is the
only step with an internal sub-loop — StartJob then repeated PollJob
calls at a configured interval, bounded by a wall-clock ceiling measured
from when the step entered in_progress.

	┌──────────────────────── ORCHESTRATOR ─────────────────────────┐
	│                                                                 │
	│  Run(ctx, documentID)                                          │
	│    │                                                            │
	│    ▼                                                            │
	│  nextStep(record) ── skip steps already complete ──┐           │
	│    │                                                 │           │
	│    ▼                                                 │           │
	│  runStep: validation / ocr / pii / redaction / insights          │
	│    │            (withRetry wraps all but ocr,                   │
	│    │             which has its own poll loop)                   │
	│    ▼                                                            │
	│  withCAS: re-read/reapply/retry on RecordConflict ──────────────┘
	│    │
	│    ▼
	│  events.Broker: step.started / step.completed / step.failed
	└─────────────────────────────────────────────────────────────────┘

# Resumability

A fresh call to Run for a document whose execution already reached some
state resumes from there: nextStep walks the canonical step order and
skips any step whose StepRecord is complete *and* whose artifact pointer
is actually set. For ocr specifically, a step left in_progress with a
job_handle is not restarted — PollJob is called again against the same
handle, so a worker restart mid-poll costs at most one poll interval.

# Failure Semantics

Stages signal failure with a *StageError carrying one of ErrKind's
values. TransientExternal errors are retried locally with jittered
exponential backoff up to a per-stage cap, then escalate to
StagePermanent. StagePermanent and Timeout halt the execution outright:
the step is marked error, status derives to error, and later steps are
never attempted. A RecordConflict (storage.ErrConflict) is never visible
outside this package — withCAS retries it internally.

# Concurrency

One Executor instance may run Run concurrently for many distinct
document IDs; each call only touches its own document's record, so the
only shared resource is the Record Store itself, which serializes writes
per key via its own compare-and-set contract. There is no intra-document
parallelism; ocr's pagination runs sequentially inside the OCRStage
implementation.

# Leader-Gated TTL Sweep

StartTTLSweeper runs a ticker loop that deletes expired records. With a
*cluster.Elector configured, only the current leader's tick does
anything; a nil elector means every tick on this (necessarily solitary)
process runs the sweep.

# See Also

  - pkg/storage for the Record Store and its compare-and-set contract
  - pkg/cluster for the leader election the TTL sweep is gated on
  - pkg/events for the step-transition events this package publishes
*/
package orchestrator
