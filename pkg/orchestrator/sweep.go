package orchestrator

import (
	"time"

	"github.com/cuemby/dd214pipeline/pkg/metrics"
)

// StartTTLSweeper begins the periodic sweep that deletes document
// records past their TTL. When an Elector is configured, each tick is a
// no-op on any process that doesn't currently hold leadership, so
// running several workers against the same Record Store never races two
// processes deleting the same record.
func (e *Executor) StartTTLSweeper() {
	go e.ttlSweepLoop()
}

// StopTTLSweeper stops the sweep loop started by StartTTLSweeper.
func (e *Executor) StopTTLSweeper() {
	close(e.stopCh)
}

func (e *Executor) ttlSweepLoop() {
	ticker := time.NewTicker(e.cfg.TTLSweepInterval)
	defer ticker.Stop()

	e.logger.Info().Dur("interval", e.cfg.TTLSweepInterval).Msg("ttl sweeper started")

	for {
		select {
		case <-ticker.C:
			if e.elector != nil && !e.elector.IsLeader() {
				continue
			}
			e.sweepExpired()
		case <-e.stopCh:
			e.logger.Info().Msg("ttl sweeper stopped")
			return
		}
	}
}

func (e *Executor) sweepExpired() {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TTLSweepDuration)

	records, err := e.store.Scan(time.Now())
	if err != nil {
		e.logger.Error().Err(err).Msg("ttl sweep scan failed")
		return
	}

	for _, record := range records {
		if err := e.store.Delete(record.DocumentID); err != nil {
			e.logger.Error().Err(err).Str("document_id", string(record.DocumentID)).Msg("failed to delete expired record")
			continue
		}
		metrics.DocumentsExpired.Inc()
		e.logger.Info().Str("document_id", string(record.DocumentID)).Msg("expired record deleted")
	}
}
