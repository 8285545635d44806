/*
Package events provides an in-memory event broker for the pipeline's
internal pub/sub signaling.

The events package implements a lightweight event bus for broadcasting
blob-store and orchestrator state changes to interested subscribers. It
supports non-blocking, asynchronous event delivery, enabling loose
coupling between the Blob Store, the Ingress Trigger, the orchestrator,
and any observability sink.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Buffered publish                         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Blob Events:                               │          │
	│  │    - blob.created                           │          │
	│  │                                              │          │
	│  │  Step Events:                               │          │
	│  │    - step.started                           │          │
	│  │    - step.completed                         │          │
	│  │    - step.failed                            │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  Ingress Trigger: starts executions on      │          │
	│  │    blob.created events under uploads/       │          │
	│  │  Orchestrator: no-op, publishes only        │          │
	│  │  No other component subscribes              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Buffered publish (waits only while the 100-event buffer is full)
  - Graceful shutdown via stop channel

Event:
  - ID: unique event identifier
  - Type: blob.created, step.started, step.completed, step.failed
  - Timestamp: when the event occurred
  - DocumentID: the document the event concerns
  - Bucket/Key: set for blob.created, the object that landed
  - Message: human-readable description
  - Metadata: key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (waits while it is full)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber receives events via channel in its own goroutine

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map and closed

# Usage

Creating and Starting Broker:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing, filtered to uploads:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			if event.Type != events.EventBlobCreated {
				continue
			}
			if event.Bucket != "uploads" {
				continue
			}
			startExecution(event.Key)
		}
	}()

Publishing a step transition:

	broker.Publish(&events.Event{
		Type:       events.EventStepCompleted,
		DocumentID: string(record.DocumentID),
		Message:    "ocr complete",
		Metadata:   map[string]string{"step": string(types.StepOCR)},
	})

# Design Patterns

Buffered Publish:
  - Publish sends to a buffered channel and returns once the event is queued
  - While that buffer is full, Publish waits for room or for Stop; it
    does not drop the event
  - Events can still be dropped at fan-out, when a subscriber's own
    buffer is full

Fan-Out:
  - A single event is broadcast to all subscribers independently
  - Full subscriber buffers skip rather than block the broadcaster

Fire-and-Forget:
  - No acknowledgment from subscribers, no retry on delivery failure
  - Suitable for triggering and observability, not for the durable
    record of what happened — that is the Record Store's and the
    Audit Trail's job, not this package's.

# Limitations

  - In-memory only, no persistence or replay
  - No guaranteed delivery (best effort)
  - No topic-based filtering; subscribers filter by Type themselves

The Ingress Trigger's exactly-once execution start does not rely on
this broker's delivery guarantees — it uses a distributed lock in the
Record Store's cache layer (an in-process lock when no cache is
configured). A dropped blob.created event leaves that upload
unprocessed — the TTL sweep only deletes expired records and does not
rediscover uploads — but it never causes a double-processed document.

# See Also

  - pkg/blob for the publisher of blob.created events
  - pkg/ingress for the primary subscriber
  - pkg/orchestrator for step event publication
*/
package events
