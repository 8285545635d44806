/*
Package security provides at-rest encryption for blobs the pipeline
stores.

This package implements AES-256-GCM encryption via SecretsManager. The
Blob Store uses one instance, keyed from an operator-supplied
deployment secret, to encrypt original uploads and derived artifacts
(extracted text, redacted text, insight JSON) before they touch disk,
and to decrypt on read.

# Key Derivation

	deploymentKey = SHA-256(deploymentSecret)  // 32 bytes for AES-256

DeriveKeyFromDeploymentSecret derives a stable key from a single
operator-supplied value (a config field or environment variable) so
every process in a deployment encrypts and decrypts with the same key
without needing a separate key-distribution mechanism. Callers may also
supply a raw 32-byte key directly via NewSecretsManager when one is
already managed by an external secret store.

# Usage

	key := security.DeriveKeyFromDeploymentSecret(cfg.Security.EncryptionPassword)
	sm, err := security.NewSecretsManager(key)
	if err != nil {
		return err
	}

	ciphertext, err := sm.EncryptSecret(plaintext)
	...
	plaintext, err := sm.DecryptSecret(ciphertext)

# Format

EncryptSecret prepends the GCM nonce to the ciphertext; DecryptSecret
expects that same layout. Neither function pads or chunks — callers
encrypt a blob's full contents in one call, which is adequate at the
document sizes this pipeline handles (scanned DD214 forms, not
multi-gigabyte uploads).

# See Also

  - pkg/blob for the encrypt-before-write, decrypt-after-read call sites
*/
package security
