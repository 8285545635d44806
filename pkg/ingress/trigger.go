package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/dd214pipeline/pkg/blob"
	"github.com/cuemby/dd214pipeline/pkg/events"
	"github.com/cuemby/dd214pipeline/pkg/log"
	"github.com/cuemby/dd214pipeline/pkg/metrics"
	"github.com/cuemby/dd214pipeline/pkg/storage"
	"github.com/cuemby/dd214pipeline/pkg/types"
	"github.com/rs/zerolog"
)

// Runner starts an orchestrator execution for a document. Satisfied by
// *orchestrator.Executor; narrowed to an interface so Trigger is
// testable without a full Executor.
type Runner interface {
	Run(ctx context.Context, documentID types.DocumentID) error
}

// Trigger subscribes to the Blob Store's create-event stream, resolves
// document identity from uploads/ object keys, and starts exactly one
// orchestrator execution per document even if the underlying event
// fires more than once for the same object.
type Trigger struct {
	broker *events.Broker
	store  storage.Store
	lock   DedupLock
	runner Runner

	sub    events.Subscriber
	stopCh chan struct{}
	logger zerolog.Logger
}

// NewTrigger wires a Trigger. lock should be a *RedisLock in a multi-
// process deployment and an *InProcessLock otherwise.
func NewTrigger(broker *events.Broker, store storage.Store, lock DedupLock, runner Runner) *Trigger {
	return &Trigger{
		broker: broker,
		store:  store,
		lock:   lock,
		runner: runner,
		stopCh: make(chan struct{}),
		logger: log.WithComponent("ingress"),
	}
}

// Start begins consuming blob-create events in a background goroutine.
func (t *Trigger) Start() {
	t.sub = t.broker.Subscribe()
	go t.loop()
}

// Stop unsubscribes from the broker and halts the consume loop.
func (t *Trigger) Stop() {
	close(t.stopCh)
	if t.sub != nil {
		t.broker.Unsubscribe(t.sub)
	}
}

func (t *Trigger) loop() {
	for {
		select {
		case event, ok := <-t.sub:
			if !ok {
				return
			}
			if event.Type != events.EventBlobCreated || event.Bucket != blob.BucketUploads {
				continue
			}
			metrics.IngressEventsReceived.Inc()
			t.handle(event)
		case <-t.stopCh:
			return
		}
	}
}

// handle processes one blob-create event: it parses the key, claims the
// deterministic execution lock, transitions the record's upload step,
// and starts the orchestrator execution in its own goroutine so a slow
// or stuck execution never blocks the event loop.
func (t *Trigger) handle(event *events.Event) {
	parsed, ok := parseUploadKey(event.Key)
	if !ok {
		t.logger.Warn().Str("key", event.Key).Msg("ignoring upload event with unparseable key")
		return
	}

	executionName := "dd214-" + string(parsed.documentID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acquired, err := t.lock.TryAcquire(ctx, executionName)
	if err != nil {
		t.logger.Error().Err(err).Str("document_id", string(parsed.documentID)).Msg("execution lock acquisition failed")
		return
	}
	if !acquired {
		metrics.IngressLockContentionTotal.Inc()
		t.logger.Info().Str("document_id", string(parsed.documentID)).Msg("duplicate upload event: already_exists")
		return
	}

	record, err := t.store.Get(parsed.documentID)
	if err != nil {
		t.logger.Error().Err(err).Str("document_id", string(parsed.documentID)).Msg("upload event for unknown document")
		return
	}
	if record.OwnerID != "" && record.OwnerID != parsed.ownerID {
		t.logger.Warn().Str("document_id", string(parsed.documentID)).Msg("upload event owner_id mismatch with record")
	}

	if err := t.markUploaded(record); err != nil {
		t.logger.Error().Err(err).Str("document_id", string(parsed.documentID)).Msg("failed to transition record to processing")
		return
	}

	go func() {
		runCtx := context.Background()
		if err := t.runner.Run(runCtx, parsed.documentID); err != nil {
			t.logger.Error().Err(err).Str("document_id", string(parsed.documentID)).Msg("orchestrator execution ended with error")
		}
	}()
}

// markUploaded marks the upload step complete and advances the record
// out of pending_upload, retrying on a compare-and-set conflict.
func (t *Trigger) markUploaded(record *types.DocumentRecord) error {
	const casRetryLimit = 5
	current := record
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		expected := current.UpdatedAt
		now := time.Now()

		if current.Steps == nil {
			current.Steps = map[types.StepName]types.StepRecord{}
		}
		current.Steps[types.StepUpload] = types.StepRecord{
			State:       types.StepComplete,
			StartedAt:   &now,
			CompletedAt: &now,
		}
		current.Status = current.DeriveStatus()
		current.UpdatedAt = now

		err := t.store.Update(current, expected)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}

		fresh, getErr := t.store.Get(current.DocumentID)
		if getErr != nil {
			return getErr
		}
		current = fresh
	}
	return errors.New("ingress: exceeded compare-and-set retry limit marking upload complete")
}
