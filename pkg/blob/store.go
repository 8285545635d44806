package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/events"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/security"
)

const (
	maxPresignGetTTL = time.Hour
	maxPresignPutTTL = 5 * time.Minute
)

// Store is a content store addressed by {bucket, key}, backed by the
// local filesystem and encrypted at rest via security.SecretsManager.
// Every Put of an object under BucketUploads emits an
// events.EventBlobCreated so the Ingress Trigger can start an
// orchestrator execution.
type Store struct {
	rootDir string
	secrets *security.SecretsManager
	broker  *events.Broker
}

// NewStore opens a Store rooted at rootDir, creating it if absent.
func NewStore(rootDir string, secrets *security.SecretsManager, broker *events.Broker) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &Store{rootDir: rootDir, secrets: secrets, broker: broker}, nil
}

func (s *Store) path(bucket, key string) string {
	return filepath.Join(s.rootDir, bucket, filepath.FromSlash(key))
}

// Put encrypts data and writes it under {bucket, key}, creating any
// intermediate directories. Writes under BucketUploads publish a
// blob-created event.
func (s *Store) Put(bucket, key string, data []byte) error {
	dest := s.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}

	ciphertext, err := s.secrets.EncryptSecret(data)
	if err != nil {
		return fmt.Errorf("encrypting blob: %w", err)
	}

	if err := os.WriteFile(dest, ciphertext, 0o600); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}

	log.WithComponent("blob").Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("blob written")

	if bucket == BucketUploads && s.broker != nil {
		s.broker.Publish(&events.Event{
			Type:   events.EventBlobCreated,
			Bucket: bucket,
			Key:    key,
		})
	}
	return nil
}

// Get reads and decrypts the object at {bucket, key}.
func (s *Store) Get(bucket, key string) ([]byte, error) {
	ciphertext, err := os.ReadFile(s.path(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	plaintext, err := s.secrets.DecryptSecret(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting blob: %w", err)
	}
	return plaintext, nil
}

// Head reports whether an object exists at {bucket, key}, along with its
// ciphertext size on disk.
func (s *Store) Head(bucket, key string) (exists bool, size int64, err error) {
	info, err := os.Stat(s.path(bucket, key))
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, info.Size(), nil
}

// presignSecret derives the HMAC key presigned URLs are signed with,
// from the same SecretsManager instance used for at-rest encryption —
// one operator-supplied deployment secret covers both concerns.
func (s *Store) presignSecret() []byte {
	return s.secrets.Key()
}

// PresignPut issues a short-lived write token for {bucket, key}. ttl is
// clamped to maxPresignPutTTL.
func (s *Store) PresignPut(bucket, key string, ttl time.Duration) string {
	if ttl > maxPresignPutTTL {
		ttl = maxPresignPutTTL
	}
	return s.sign("PUT", bucket, key, ttl)
}

// PresignGet issues a short-lived read token for {bucket, key}. ttl is
// clamped to maxPresignGetTTL.
func (s *Store) PresignGet(bucket, key string, ttl time.Duration) string {
	if ttl > maxPresignGetTTL {
		ttl = maxPresignGetTTL
	}
	return s.sign("GET", bucket, key, ttl)
}

// sign produces a token of the form method.bucket.key.expiry.signature,
// with expiry as a unix timestamp and signature an HMAC-SHA256 over the
// preceding fields, base64url-encoded. The expiry is embedded in the
// token itself so Verify needs no external state to reject an expired
// presign.
func (s *Store) sign(method, bucket, key string, ttl time.Duration) string {
	expiry := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s.%s.%s.%d", method, bucket, key, expiry)
	mac := hmac.New(sha256.New, s.presignSecret())
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s.%s", payload, sig)
}

// VerifyPresigned checks a token produced by PresignPut/PresignGet,
// returning the method, bucket, and key it authorizes if the signature
// is valid and the token has not expired.
func (s *Store) VerifyPresigned(token string) (method, bucket, key string, err error) {
	// Keys may contain dots, so method and bucket are read from the
	// front and the signature and expiry from the back.
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed presigned token")
	}
	method, bucket, rest := parts[0], parts[1], parts[2]
	sigDot := strings.LastIndexByte(rest, '.')
	if sigDot < 0 {
		return "", "", "", fmt.Errorf("malformed presigned token")
	}
	rest, sig := rest[:sigDot], rest[sigDot+1:]
	expiryDot := strings.LastIndexByte(rest, '.')
	if expiryDot < 0 {
		return "", "", "", fmt.Errorf("malformed presigned token")
	}
	key, expiryStr := rest[:expiryDot], rest[expiryDot+1:]

	payload := fmt.Sprintf("%s.%s.%s.%s", method, bucket, key, expiryStr)
	mac := hmac.New(sha256.New, s.presignSecret())
	mac.Write([]byte(payload))
	expectedSig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expectedSig)) {
		return "", "", "", fmt.Errorf("presigned token signature mismatch")
	}

	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return "", "", "", fmt.Errorf("malformed presigned token expiry: %w", err)
	}
	if time.Now().Unix() > expiry {
		return "", "", "", fmt.Errorf("presigned token expired")
	}
	return method, bucket, key, nil
}

// hexEncode is a small helper kept for callers that want a
// human-inspectable form of a raw key (e.g. logging a content hash);
// not used by the core Put/Get path.
func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}
