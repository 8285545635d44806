/*
Package redact turns extracted DD214 text into a redacted artifact
safe to hand to the Insight Generator and to consumers.

Replacement runs in three passes, in order: DD214 structural
replacements (reusing pii.StructuralPatterns' label anchors so
detection and redaction can never disagree about where a labelled
value starts), general pattern replacements (SSN, DoD ID, phone,
email, ZIP), and finally any finding that carries an explicit byte
span, applied in reverse start-offset order so earlier replacements
never shift a later span's offsets.

The result is wrapped in a fixed header naming the generation
timestamp and finding count, and a fixed footer. Redacting an
already-redacted artifact is a no-op: the header is detected and the
artifact is returned unchanged, so no marker is ever redacted again.

If the source text cannot be retrieved, Redact still succeeds: it
writes a placeholder body inside the same header/footer so downstream
stages are never blocked by a storage failure here. Nothing on the
record marks this degraded output; only a logged warning and the
placeholder text show it.

# See Also

  - pkg/pii, whose pattern definitions this package reuses verbatim
  - pkg/orchestrator, the consumer of this package's Redactor
*/
package redact
