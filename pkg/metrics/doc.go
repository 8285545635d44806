/*
Package metrics provides Prometheus metrics collection and exposition
for the DD214 processing pipeline.

The metrics package defines and registers every pipeline metric using
the Prometheus client library, giving observability into document
throughput, per-step latency and retries, external dependency health
(OCR, PII classifier, LLM transports), circuit breaker state, and
leader-election status. Metrics are exposed via HTTP for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Documents: totals by status, completed,    │          │
	│  │    failed by step, expired                  │          │
	│  │  Steps: duration, retries, transitions      │          │
	│  │  Dependencies: OCR/classifier/LLM latency,  │          │
	│  │    always-redact fallback, fallback         │          │
	│  │    artifacts                                │          │
	│  │  Breakers: state changes, rejections        │          │
	│  │  Ingress: events received, lock contention  │          │
	│  │  Orchestrator: cycle duration, TTL sweep    │          │
	│  │  Cluster: leader status, peer count         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Collector

Collector periodically samples the Record Store (CountByStatus) and the
cluster leader-election state into the gauges above. Everything else —
step durations, retries, breaker trips — is recorded inline by the
component that observes it, via the package-level metric vars and the
Timer helper, not by the Collector.

# Usage

Timing a step:

	timer := metrics.NewTimer()
	err := runStep(ctx, record)
	timer.ObserveDurationVec(metrics.StepDuration, string(types.StepOCR))

Recording a retry:

	metrics.StepRetriesTotal.WithLabelValues(string(types.StepOCR), "transient_external").Inc()

Starting the collector:

	collector := metrics.NewCollector(store, elector)
	collector.Start()
	defer collector.Stop()

Exposing the endpoint:

	http.Handle("/metrics", metrics.Handler())

# Health and Readiness

GetHealth/GetReadiness/HealthHandler/ReadyHandler/LivenessHandler report
on registered components (record_store, blob_store, orchestrator) for
use by an external load balancer or orchestrator health check — not to
be confused with the document pipeline's own orchestrator package,
which is itself one of the components registered here.

# See Also

  - pkg/storage for CountByStatus
  - pkg/cluster for the LeaderStatus the collector samples
  - pkg/orchestrator for step timing and retry instrumentation
*/
package metrics
