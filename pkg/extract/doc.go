/*
Package extract pulls a fixed set of DD214 fields out of OCR line text.

Extraction is deterministic: the same line sequence always yields the
same field map, with no I/O. Each field has an ordered list of candidate
regular expressions; the first that matches wins, and the first
capturing group becomes the field's value after trimming. Fields with no
match are simply absent from the output — extraction never fails the
pipeline stage that calls it.

# Tie-Breaks

service_branch matches against a closed vocabulary rather than a regex,
so a document can never produce a branch name outside the six values
this package recognizes. mos and primary_specialty suppress a bare two-letter
match when the buffer also contains an Army-style NN[A-Z] specialty code,
so a Navy rate abbreviation can't shadow a correct specialty extracted
from the same text.

# Derived Numerics

ParseServiceDurationMonths and ExperienceTier convert the total_service
field's free-form duration string into a total-months count and a
closed/open threshold tier. Extract calls both itself, adding
total_service_months and experience_tier to its output map whenever a
total_service value was found, so every caller of Extract gets the
derived fields for free.

# See Also

  - pkg/ocr, which calls Extract while writing extraction_summary.json
  - pkg/insights, which carries record.ExtractedFields (including
    experience_tier) into both the primary prompt and the fallback
    artifact's extracted_profile section
*/
package extract
