package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

var defaultBucketName = []byte("documents")

// BoltStore implements Store using BoltDB as the embedded backing file.
type BoltStore struct {
	db       *bolt.DB
	bucket   []byte
	validate *validator.Validate
}

// NewBoltStore creates a new BoltDB-backed store rooted at dataDir,
// using the default "documents" bucket name.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	return NewBoltStoreWithBucket(dataDir, "")
}

// NewBoltStoreWithBucket creates a new BoltDB-backed store rooted at
// dataDir. bucketName names the bbolt bucket every record is stored
// under; an empty bucketName selects "documents".
func NewBoltStoreWithBucket(dataDir, bucketName string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "dd214pipeline.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bucket := defaultBucketName
	if bucketName != "" {
		bucket = []byte(bucketName)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, bucket: bucket, validate: validator.New()}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Create inserts a new record, rejecting an existing one at the same key.
func (s *BoltStore) Create(record *types.DocumentRecord) error {
	if err := s.validate.Struct(record); err != nil {
		return fmt.Errorf("validating record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		key := []byte(record.DocumentID)
		if b.Get(key) != nil {
			return ErrConflict
		}

		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
		record.UpdatedAt = record.CreatedAt

		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// Get fetches a record by document ID.
func (s *BoltStore) Get(id types.DocumentID) (*types.DocumentRecord, error) {
	var record types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&record); err != nil {
		return nil, fmt.Errorf("validating stored record %s: %w", id, err)
	}
	return &record, nil
}

// Update persists record inside one transaction after checking the stored
// record's UpdatedAt still matches expectedUpdatedAt. The caller is
// expected to have already advanced record.UpdatedAt to a new value.
func (s *BoltStore) Update(record *types.DocumentRecord, expectedUpdatedAt time.Time) error {
	if err := s.validate.Struct(record); err != nil {
		return fmt.Errorf("validating record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		key := []byte(record.DocumentID)

		data := b.Get(key)
		if data == nil {
			return ErrNotFound
		}

		var current types.DocumentRecord
		if err := json.Unmarshal(data, &current); err != nil {
			return err
		}
		if !current.UpdatedAt.Equal(expectedUpdatedAt) {
			return ErrConflict
		}

		out, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

// Scan returns every record whose TTL has passed before cutoff.
func (s *BoltStore) Scan(cutoff time.Time) ([]*types.DocumentRecord, error) {
	var expired []*types.DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		return b.ForEach(func(k, v []byte) error {
			var record types.DocumentRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			if !record.TTL.IsZero() && record.TTL.Before(cutoff) {
				expired = append(expired, &record)
			}
			return nil
		})
	})
	return expired, err
}

// CountByStatus returns the number of records in each status.
func (s *BoltStore) CountByStatus() (map[types.Status]int, error) {
	counts := make(map[types.Status]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		return b.ForEach(func(k, v []byte) error {
			var record types.DocumentRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			counts[record.Status]++
			return nil
		})
	})
	return counts, err
}

// Delete removes a record outright.
func (s *BoltStore) Delete(id types.DocumentID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		return b.Delete([]byte(id))
	})
}
