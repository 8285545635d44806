package cluster

import (
	"io"

	"github.com/hashicorp/raft"
)

// noopFSM satisfies raft.FSM without replicating any application state.
// Raft here exists purely to elect a leader that gates the periodic TTL
// sweep; document records themselves live in the Record Store (bbolt),
// not in the Raft log, so there is nothing for Apply to do.
type noopFSM struct{}

// Apply is never expected to receive real commands: Elector never calls
// raft.Apply(). It exists only to satisfy the raft.FSM interface.
func (f *noopFSM) Apply(log *raft.Log) interface{} {
	return nil
}

// Snapshot returns an empty snapshot; there is no state to persist.
func (f *noopFSM) Snapshot() (raft.FSMSnapshot, error) {
	return &noopSnapshot{}, nil
}

// Restore is a no-op; there is nothing to restore.
func (f *noopFSM) Restore(rc io.ReadCloser) error {
	return rc.Close()
}

type noopSnapshot struct{}

func (s *noopSnapshot) Persist(sink raft.SnapshotSink) error {
	return sink.Close()
}

func (s *noopSnapshot) Release() {}
