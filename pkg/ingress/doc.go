/*
Package ingress starts orchestrator executions from Blob Store
create-events, implementing the pipeline's C10 component.

Trigger subscribes to pkg/events for EventBlobCreated, filters to the
uploads/ bucket, and parses owner_id/document_id back out of the object
key using blob.UploadKey's layout. A DedupLock (RedisLock across
processes, InProcessLock within one) gives the deterministic execution
name dd214-<document_id> exactly-once start semantics: a second event
for the same object loses the lock and is treated as already_exists
rather than starting a second execution.

On a successful claim, Trigger marks the record's upload step complete,
recomputes status, and starts the orchestrator execution in its own
goroutine so a slow execution never blocks the event loop.

# See Also

  - pkg/blob, the event source and key layout this package parses
  - pkg/orchestrator, the Runner this package starts
*/
package ingress
