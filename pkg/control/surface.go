// Package control implements the internal procedures external HTTP
// handlers call into: provisioning an upload slot, reading back a
// record's progress, and fetching the redacted document or insights
// artifact once the pipeline has produced them.
package control

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/storage"
	"github.com/cuemby/dd214pipeline/pkg/types"
)

// presignTTL bounds how long a provisioned upload or read URL stays valid.
const presignTTL = 15 * time.Minute

// Surface wires the Record Store and Blob Store into the four
// procedures external handlers depend on. It holds no state of its
// own beyond its dependencies and the buckets/TTL a deployment
// configures.
type Surface struct {
	store storage.Store
	blob  *blob.Store

	originalsBucket string
	ttlDays         int
}

// New builds a Surface. originalsBucket names the bucket ProvisionUpload
// issues presigned PUTs against; ttlDays stamps the TTL every new record
// is created with, consumed later by the orchestrator's TTL sweep.
func New(store storage.Store, blobStore *blob.Store, originalsBucket string, ttlDays int) *Surface {
	return &Surface{
		store:           store,
		blob:            blobStore,
		originalsBucket: originalsBucket,
		ttlDays:         ttlDays,
	}
}

// UploadGrant is the result of ProvisionUpload: a presigned URL the
// caller uploads the original document to, and the document_id the
// rest of the control surface and the pipeline identify it by.
type UploadGrant struct {
	UploadURL  string
	DocumentID types.DocumentID
}

// ProvisionUpload creates a new pending_upload record and returns a
// presigned PUT URL for its original document. The record exists
// before any bytes are uploaded so the Ingress Trigger, reacting to the
// blob-create event the upload produces, can look it up by the
// owner_id/document_id pair encoded in the object key rather than
// racing the caller to create it.
func (s *Surface) ProvisionUpload(ownerID, filename, contentType string) (UploadGrant, error) {
	if ownerID == "" {
		return UploadGrant{}, fmt.Errorf("control: owner_id is required")
	}
	if filename == "" {
		return UploadGrant{}, fmt.Errorf("control: filename is required")
	}

	documentID := types.DocumentID(uuid.NewString())
	now := time.Now()
	key := blob.UploadKey(ownerID, documentID, now, uploadExt(filename))

	record := &types.DocumentRecord{
		DocumentID: documentID,
		OwnerID:    ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     types.StatusPendingUpload,
		SourceRef: types.SourceRef{
			Bucket:           s.originalsBucket,
			Key:              key,
			ContentType:      contentType,
			OriginalFilename: filename,
		},
		Steps: map[types.StepName]types.StepRecord{},
		TTL:   now.AddDate(0, 0, s.ttlDays),
	}

	if err := s.store.Create(record); err != nil {
		return UploadGrant{}, fmt.Errorf("control: creating record: %w", err)
	}

	uploadURL := s.blob.PresignPut(s.originalsBucket, key, presignTTL)
	return UploadGrant{UploadURL: uploadURL, DocumentID: documentID}, nil
}

// uploadExt returns the extension to store the upload under, defaulting
// to "bin" for an extensionless filename so UploadKey always produces a
// parseable key.
func uploadExt(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// GetRecord returns documentID's current record. Returns
// storage.ErrNotFound if no such document exists.
func (s *Surface) GetRecord(documentID types.DocumentID) (*types.DocumentRecord, error) {
	record, err := s.store.Get(documentID)
	if err != nil {
		return nil, fmt.Errorf("control: loading record: %w", err)
	}
	return record, nil
}

// ReadResult is the outcome of fetching a produced artifact: either a
// presigned GET URL, or Ready=false meaning the pipeline has not
// reached that step yet.
type ReadResult struct {
	Ready bool
	URL   string
}

// GetRedacted returns a presigned GET URL for documentID's redacted
// text artifact, or Ready=false if redaction has not completed.
func (s *Surface) GetRedacted(documentID types.DocumentID) (ReadResult, error) {
	record, err := s.GetRecord(documentID)
	if err != nil {
		return ReadResult{}, err
	}
	if !record.RedactedRef.IsSet() {
		return ReadResult{Ready: false}, nil
	}
	url := s.blob.PresignGet(record.RedactedRef.Bucket, record.RedactedRef.Key, presignTTL)
	return ReadResult{Ready: true, URL: url}, nil
}

// GetInsights returns a presigned GET URL for documentID's insights
// artifact, or Ready=false if insight generation has not completed.
func (s *Surface) GetInsights(documentID types.DocumentID) (ReadResult, error) {
	record, err := s.GetRecord(documentID)
	if err != nil {
		return ReadResult{}, err
	}
	if !record.InsightsRef.IsSet() {
		return ReadResult{Ready: false}, nil
	}
	url := s.blob.PresignGet(record.InsightsRef.Bucket, record.InsightsRef.Key, presignTTL)
	return ReadResult{Ready: true, URL: url}, nil
}
