package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// PostgresSink appends step transitions to a processing_events table via
// pgxpool. Every write is a plain parameterized INSERT; there is no
// update or delete path — the table is append-only by construction.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to dsn and verifies the schema exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: pinging postgres: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processing_events (
			id           UUID PRIMARY KEY,
			document_id  TEXT NOT NULL,
			step         TEXT NOT NULL,
			state        TEXT NOT NULL,
			message      TEXT NOT NULL DEFAULT '',
			occurred_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("audit: ensuring schema: %w", err)
	}
	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS processing_events_document_id_idx
		ON processing_events (document_id, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("audit: ensuring index: %w", err)
	}
	return nil
}

// Record appends one entry. OccurredAt defaults to now if unset.
func (s *PostgresSink) Record(ctx context.Context, entry Entry) error {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_events (id, document_id, step, state, message, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), string(entry.DocumentID), string(entry.Step), string(entry.State),
		entry.Message, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("audit: recording entry: %w", err)
	}
	return nil
}

// ListByDocument returns every entry for documentID in occurred_at order,
// for reconstructing a record's history during an audit or postmortem.
func (s *PostgresSink) ListByDocument(ctx context.Context, documentID types.DocumentID) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT document_id, step, state, message, occurred_at
		 FROM processing_events WHERE document_id = $1 ORDER BY occurred_at ASC`,
		string(documentID),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var documentID, step, state string
		if err := rows.Scan(&documentID, &step, &state, &e.Message, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scanning entry: %w", err)
		}
		e.DocumentID = types.DocumentID(documentID)
		e.Step = types.StepName(step)
		e.State = types.StepState(state)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
