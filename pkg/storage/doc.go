/*
Package storage provides BoltDB-backed persistence for the pipeline's
document records.

The storage package implements the Store interface using BoltDB as the
underlying database: a single bucket (named "documents" unless
NewBoltStoreWithBucket overrides it) keyed by document ID, each value a
JSON-serialized DocumentRecord. A single embedded file gives every write
ACID durability without standing up a database server. Create, Update,
and Get all run the record through go-playground/validator/v10 against
its struct tags, rejecting a malformed write before it reaches disk and
a corrupted read before it reaches the caller.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/dd214pipeline.db          │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ documents   (DocumentID)    │             │          │
	│  │  └────────────────────────────┘             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Transaction Management                │          │
	│  │  - Read: db.View() - concurrent reads       │          │
	│  │  - Write: db.Update() - serialized writes   │          │
	│  │  - Rollback: automatic on error             │          │
	│  │  - Commit: automatic on success + fsync     │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Compare-And-Set

Update requires the caller's expectedUpdatedAt to match the currently
stored record's UpdatedAt, inside the same bolt transaction that performs
the write. Two goroutines racing to advance the same document's state
cannot both win: the loser gets ErrConflict and must reload the record
and retry. This is the only concurrency control the Record Store needs —
bbolt already serializes all db.Update calls against one file, so the
compare step and the write happen atomically relative to every other
writer.

# Usage

Creating a store:

	store, err := storage.NewBoltStore("/var/lib/dd214pipeline")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Creating and updating a record:

	record := &types.DocumentRecord{
		DocumentID: types.DocumentID(id),
		OwnerID:    ownerID,
		Status:     types.StatusPendingUpload,
		Steps:      map[types.StepName]types.StepRecord{},
	}
	if err := store.Create(record); err != nil {
		return err
	}

	current, err := store.Get(record.DocumentID)
	if err != nil {
		return err
	}
	prevUpdatedAt := current.UpdatedAt
	current.Status = current.DeriveStatus()
	current.UpdatedAt = time.Now()
	if err := store.Update(current, prevUpdatedAt); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// reload and retry
		}
		return err
	}

Scanning for expired records:

	expired, err := store.Scan(time.Now())
	for _, record := range expired {
		// purge blobs, then store.Delete(record.DocumentID)
	}

# Cache Layer

A Redis-backed read-through cache wraps any Store to absorb read load
from repeated status polling, and doubles as the distributed lock
(SetNX) the Ingress Trigger uses to guarantee exactly-once execution
start per document. See pkg/ingress.

# Limitations

  - No secondary indexes; CountByStatus and Scan are full bucket walks.
    Acceptable at the document volumes this pipeline is sized for — a
    dedicated index bucket is the first thing to add if that changes.
  - Single file, single process. bbolt locks the file, so a second
    process opening the same path blocks. The leader election in
    pkg/cluster gates only the TTL sweep; it does not share this file
    between processes.
*/
package storage
