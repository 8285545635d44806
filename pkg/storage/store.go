package storage

import (
	"errors"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// ErrNotFound is returned when a document record does not exist.
var ErrNotFound = errors.New("storage: document not found")

// ErrConflict is returned by Update when the stored record's UpdatedAt no
// longer matches the caller's expected value — someone else wrote the
// record first. Callers reload and retry.
var ErrConflict = errors.New("storage: compare-and-set conflict")

// Store defines the interface for durable document record storage.
// Implemented by BoltStore; CachedStore may wrap any Store to add a
// read-through cache. The Ingress Trigger's distributed lock shares the
// cache's Redis client but is not part of Store.
type Store interface {
	// Create inserts a new record. Returns ErrConflict if one already
	// exists for the same DocumentID.
	Create(record *types.DocumentRecord) error

	// Get fetches a record by ID. Returns ErrNotFound if absent.
	Get(id types.DocumentID) (*types.DocumentRecord, error)

	// Update persists record, enforcing compare-and-set on UpdatedAt:
	// the write is rejected with ErrConflict unless the currently stored
	// record's UpdatedAt equals expectedUpdatedAt. Callers set
	// record.UpdatedAt to a new value before calling Update.
	Update(record *types.DocumentRecord, expectedUpdatedAt time.Time) error

	// Scan returns every record whose TTL has passed before cutoff. Used
	// by the TTL sweep to find expired documents.
	Scan(cutoff time.Time) ([]*types.DocumentRecord, error)

	// CountByStatus returns the number of records in each status, for
	// metrics collection.
	CountByStatus() (map[types.Status]int, error)

	// Delete removes a record outright. Used by the TTL sweep to remove
	// an expired record; the record's blobs are left in place.
	Delete(id types.DocumentID) error

	// Close releases the underlying database handle.
	Close() error
}
