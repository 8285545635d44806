package audit

import (
	"context"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// Entry is one append-only audit row, independent of a DocumentRecord's
// mutable Steps map so a corrupted or compacted record can still be
// reconstructed for a postmortem.
type Entry struct {
	DocumentID types.DocumentID
	Step       types.StepName
	State      types.StepState
	Message    string
	OccurredAt time.Time
}

// Sink records step transitions. Implemented by *PostgresSink when
// audit.postgres_dsn is configured, and by NoopSink otherwise.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	ListByDocument(ctx context.Context, documentID types.DocumentID) ([]Entry, error)
}

// NoopSink discards every entry. Used when no Postgres DSN is
// configured; the orchestrator always has a Sink to write to so it
// never has to branch on whether auditing is enabled.
type NoopSink struct{}

func (NoopSink) Record(ctx context.Context, entry Entry) error { return nil }

func (NoopSink) ListByDocument(ctx context.Context, documentID types.DocumentID) ([]Entry, error) {
	return nil, nil
}
