/*
Package types defines the core data structures shared across the DD214
processing pipeline.

This package contains the fundamental domain model every stage and every
adapter depends on: the Document Record and its step states, PII findings,
artifact pointers, and the insight artifact contract. These types are the
single vocabulary the Record Store, the blob store, and every pipeline
stage use to talk about a document's progress.

# Architecture

The types package is the foundation of the pipeline's data model. It defines:

  - Document lifecycle (DocumentRecord, Status, StepName, StepState)
  - PII findings (PIIFinding, PIIKind, PIISource, Span)
  - Artifact pointers into the blob store (ArtifactRef, SourceRef)
  - The insight artifact contract consumers depend on (InsightArtifact)
  - Prompt variant selection (PromptVariant)

All types are designed to be:
  - Serializable (JSON)
  - Validated on both read and write (struct tags consumed by
    github.com/go-playground/validator/v10)
  - Closed-vocabulary wherever the domain has a fixed set of values
    (string-backed enums with a fixed const block, never a bare string
    at the call site)

# Core Types

Document Lifecycle:
  - DocumentRecord: the durable per-document record
  - Status: pending_upload, uploaded, processing, ..., complete, error
  - StepName: upload, validation, ocr, pii_detection, redaction, insights
  - StepRecord / StepState: per-step progress within one execution

PII & Redaction:
  - PIIFinding: one detected or always-redact PII span or field
  - PIIKind: SSN, DOD_ID, DATE_OF_BIRTH, ADDRESS, NAME, EMAIL, PHONE, ...
  - PIISource: pattern, classifier, or always_redact

Artifacts:
  - ArtifactRef: a {bucket, key} pointer into the Blob Store
  - SourceRef: the original uploaded document's location and metadata

Insights:
  - InsightArtifact: the JSON contract consumers poll for
  - PromptVariant: dd214_comprehensive, legacy_report, meta_recommendations, ...

# Status Derivation

DocumentRecord.DeriveStatus implements the monotone status invariant:
status is complete iff every non-optional step is complete, and error iff
any step is in the error state. Callers should never set Status directly
from stage code — derive it and let the Record Store persist the result
alongside the step update that produced it.
*/
package types
