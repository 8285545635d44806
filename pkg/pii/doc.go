/*
Package pii detects sensitive spans in extracted DD214 text, producing
the finding list pkg/redact consumes.

Detection combines three signals:

  - General pattern rules (SSN, DoD ID, phone, email, ZIP-shaped runs),
    always on, over the full text buffer.
  - DD214 structural patterns, label-anchored the same way
    pkg/extract's field patterns are, covering SSN, date of birth, home
    of record, mailing address, nearest relative, and place of birth.
  - An optional external Classifier, bounded by a wait timeout. Its
    findings only ever add to the pattern-derived set; they never
    replace it.

A fixed always-redact field list guarantees every DD214 submission
redacts certain labels even when no pattern inside them matched
anything, and a Classifier timeout or hard failure degrades to that
same guarantee rather than failing the step.

# See Also

  - pkg/extract, whose label-anchored pattern idiom this package reuses
  - pkg/redact, the consumer of the finding list this package produces
*/
package pii
