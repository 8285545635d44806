/*
Package blob implements the content store every other component reads
and writes artifacts through: original uploads, OCR results, redacted
text, and generated insights.

Objects are addressed by {bucket, key} rather than a single flat
namespace, matching the canonical bucket/key layout in keys.go. Every
object is encrypted at rest with security.SecretsManager before it
touches disk and decrypted transparently on Get; callers never see
ciphertext.

# Presigned Access

PresignPut and PresignGet issue bearer tokens scoped to one
{method, bucket, key} triple with an expiry embedded in the token
itself, HMAC-signed with the same deployment key used for at-rest
encryption. VerifyPresigned rejects a tampered or expired token without
needing any server-side session state. Write tokens are capped at five
minutes and read tokens at one hour, regardless of the ttl requested,
per the upload/delivery windows a real client needs.

# Events

A Put under BucketUploads publishes an events.EventBlobCreated so the
Ingress Trigger can discover new uploads without polling the store.

# See Also

  - pkg/security, for the underlying encryption primitive
  - pkg/ingress, the sole subscriber to upload-created events
  - pkg/orchestrator, whose stages read and write the other three buckets
*/
package blob
