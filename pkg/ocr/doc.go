/*
Package ocr adapts an external optical character recognition service into
the orchestrator.OCRStage contract: submit a job, poll it to completion,
and persist the full result set durably.

# Job Handles

A job handle returned by StartJob encodes both the document ID and the
provider's own handle, since PollJob is called with only the handle
(possibly from a different process, after a restart) and has no other
way to know which document's artifacts to write.

# Pagination And Persistence

PollJob paginates every result page via Transport.FetchPage until no
continuation token remains, then writes three artifacts through a
blob.Store: the complete raw block list, a convenience plain-text dump
built by concatenating LINE block text in delivery order, and a
summary combining extract.Extractor's field map with page statistics
and a bounded preview.

# Resilience

Every Transport call runs through a sony/gobreaker circuit breaker that
trips after three consecutive failures, so a prolonged outage in the OCR
service fails fast instead of piling up blocked executions.

# See Also

  - pkg/orchestrator, the consumer of this package's Adapter
  - pkg/extract, the field extraction the summary embeds
  - pkg/blob, the artifact store every persisted object lands in
*/
package ocr
