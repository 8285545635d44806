/*
Package prompt composes the system text, messages, and inference
parameters the Insight Generator sends to the model. It is a pure
function: given the same variant, text, profile, and rotation inputs,
it always returns the same Bundle. It never touches a network and
knows nothing about retries or transport.

# Variants

Five variants are registered: dd214_comprehensive, legacy_report,
meta_recommendations, interview_prep, and salary_negotiation. Each
pins its own InferenceParams. The three non-deterministic variants
additionally interpolate a small set of rotating context tokens (date,
calendar quarter, a perspective lens, a career pathway) into their system
text so repeated generations read differently; this rotation is
isolated to this package, so every other component stays fully
deterministic for tests.

# Truncation

Redacted text beyond inputCharacterCeiling is truncated before being
embedded, and Bundle.Truncated records that it happened so callers can
surface the degradation.

# See Also

  - pkg/insights, the sole consumer of the Bundle this package produces
*/
package prompt
