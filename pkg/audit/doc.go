/*
Package audit provides an append-only record of every pipeline step
transition, independent of the mutable DocumentRecord the orchestrator
maintains in pkg/storage.

PostgresSink persists entries to a processing_events table via pgxpool,
for postmortems and compliance review: even a corrupted or compacted
Record Store row can be reconstructed from the ordered entries here.
Configuring audit.postgres_dsn is optional — when unset, the
orchestrator is wired with NoopSink and every Record call is a no-op,
so stage code never has to check whether auditing is enabled.

# See Also

  - pkg/orchestrator, the writer of every entry this package stores
  - pkg/storage, the mutable record this package's history reconstructs
*/
package audit
