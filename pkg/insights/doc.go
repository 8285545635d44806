/*
Package insights generates the consumer-facing career intelligence
artifact from a document's redacted text, implementing
orchestrator.InsightsStage.

Generate composes a prompt via pkg/prompt, then invokes a Transport
(AnthropicTransport or BedrockTransport, both behind the same
single-operation Converse contract) through a circuit breaker. Each
call is bounded by a per-call deadline; a failure or an unparseable
response is retried up to twice with linear backoff before the stage
falls back to a statically constructed artifact rather than failing
outright: insight generation must always succeed from the
orchestrator's point of view.

Response parsing strips Markdown code fences, parses the remainder as
JSON, and on failure makes one salvage attempt by slicing from the
first `{` to the last `}` before giving up and falling back. Every
artifact, whether primary or fallback, carries the full set of known
top-level section names — missing sections become empty objects rather
than being left absent, so consumers never have to branch on which
sections a given artifact happened to produce.

# See Also

  - pkg/prompt, the composer this package's Transport calls consume
  - pkg/orchestrator, the consumer of this package's Generator
*/
package insights
