package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Document lifecycle metrics
	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dd214_documents_total",
			Help: "Total number of documents by status",
		},
		[]string{"status"},
	)

	DocumentsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_documents_ingested_total",
			Help: "Total number of documents that entered the pipeline",
		},
	)

	DocumentsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_documents_completed_total",
			Help: "Total number of documents that reached the complete status",
		},
	)

	DocumentsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dd214_documents_failed_total",
			Help: "Total number of documents that reached the error status, by failing step",
		},
		[]string{"step"},
	)

	DocumentsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_documents_expired_total",
			Help: "Total number of document records removed by the TTL sweep",
		},
	)

	// Step metrics
	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dd214_step_duration_seconds",
			Help:    "Time taken to complete one pipeline step in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	StepRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dd214_step_retries_total",
			Help: "Total number of step retries by step and error class",
		},
		[]string{"step", "error_class"},
	)

	StepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dd214_step_transitions_total",
			Help: "Total number of step state transitions",
		},
		[]string{"step", "state"},
	)

	// External dependency metrics
	OCRCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dd214_ocr_call_duration_seconds",
			Help:    "Time taken for an OCR transport call in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PIIClassifierCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dd214_pii_classifier_call_duration_seconds",
			Help:    "Time taken for an async PII classifier round trip in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PIIAlwaysRedactFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_pii_always_redact_fallback_total",
			Help: "Total number of documents that fell back to always-redact defaults",
		},
	)

	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dd214_llm_call_duration_seconds",
			Help:    "Time taken for an insight generation call in seconds, by transport",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	LLMFallbackArtifactsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_llm_fallback_artifacts_total",
			Help: "Total number of insight artifacts produced via the fallback path",
		},
	)

	// Circuit breaker metrics
	BreakerStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dd214_breaker_state_changes_total",
			Help: "Total number of circuit breaker state transitions by dependency and new state",
		},
		[]string{"dependency", "state"},
	)

	BreakerRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dd214_breaker_rejections_total",
			Help: "Total number of calls rejected because a breaker was open",
		},
		[]string{"dependency"},
	)

	// Ingress trigger metrics
	IngressEventsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_ingress_events_received_total",
			Help: "Total number of blob-created events observed by the ingress trigger",
		},
	)

	IngressLockContentionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dd214_ingress_lock_contention_total",
			Help: "Total number of times the ingress trigger lost the execution-start lock to a duplicate event",
		},
	)

	// Orchestrator metrics
	OrchestratorCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dd214_orchestrator_cycle_duration_seconds",
			Help:    "Time taken for one orchestrator sweep cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TTLSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dd214_ttl_sweep_duration_seconds",
			Help:    "Time taken for a TTL sweep pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Leadership metrics, carried from the cluster leader-election layer
	ClusterIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dd214_cluster_is_leader",
			Help: "Whether this process holds the leader lease that gates the TTL sweep (1 = leader, 0 = follower)",
		},
	)

	ClusterPeersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dd214_cluster_peers_total",
			Help: "Total number of peers participating in leader election",
		},
	)
)

func init() {
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(DocumentsIngested)
	prometheus.MustRegister(DocumentsCompleted)
	prometheus.MustRegister(DocumentsFailed)
	prometheus.MustRegister(DocumentsExpired)

	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(StepRetriesTotal)
	prometheus.MustRegister(StepTransitionsTotal)

	prometheus.MustRegister(OCRCallDuration)
	prometheus.MustRegister(PIIClassifierCallDuration)
	prometheus.MustRegister(PIIAlwaysRedactFallbackTotal)
	prometheus.MustRegister(LLMCallDuration)
	prometheus.MustRegister(LLMFallbackArtifactsTotal)

	prometheus.MustRegister(BreakerStateChanges)
	prometheus.MustRegister(BreakerRejectionsTotal)

	prometheus.MustRegister(IngressEventsReceived)
	prometheus.MustRegister(IngressLockContentionTotal)

	prometheus.MustRegister(OrchestratorCycleDuration)
	prometheus.MustRegister(TTLSweepDuration)

	prometheus.MustRegister(ClusterIsLeader)
	prometheus.MustRegister(ClusterPeersTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
