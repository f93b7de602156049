package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the verification service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	documentsSubmitted *prometheus.CounterVec
	documentsDeleted   *prometheus.CounterVec
	storageErrors      *prometheus.CounterVec
	cleanupFailures    prometheus.Counter
	orphansReported    prometheus.Counter
	statusTransitions  *prometheus.CounterVec
	submitDuration     prometheus.Histogram
	orphanJobs         *prometheus.CounterVec
}

// New creates a registry and registers all collectors on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		documentsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_documents_submitted_total",
			Help: "Verification documents accepted, by document type",
		}, []string{"doc_type"}),
		documentsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_documents_deleted_total",
			Help: "Verification documents deleted, by document type",
		}, []string{"doc_type"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_storage_errors_total",
			Help: "Blob store failures surfaced to callers, by operation",
		}, []string{"op"}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_blob_cleanup_failures_total",
			Help: "Replaced blobs that could not be deleted",
		}),
		orphansReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verification_orphans_reported_total",
			Help: "Orphaned blobs handed to the cleanup queue",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_status_transitions_total",
			Help: "Aggregate verification status changes",
		}, []string{"from", "to"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verification_submit_duration_seconds",
			Help:    "End-to-end duration of document submissions",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		orphanJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_orphan_jobs_total",
			Help: "Orphan cleanup queue messages handled by the worker, by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.documentsSubmitted,
		m.documentsDeleted,
		m.storageErrors,
		m.cleanupFailures,
		m.orphansReported,
		m.statusTransitions,
		m.submitDuration,
		m.orphanJobs,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncDocumentSubmitted counts an accepted submission.
func (m *Metrics) IncDocumentSubmitted(docType string) {
	if m == nil {
		return
	}
	m.documentsSubmitted.WithLabelValues(docType).Inc()
}

// IncDocumentDeleted counts a completed delete.
func (m *Metrics) IncDocumentDeleted(docType string) {
	if m == nil {
		return
	}
	m.documentsDeleted.WithLabelValues(docType).Inc()
}

// IncStorageError counts a blob store failure returned to the caller.
func (m *Metrics) IncStorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// IncCleanupFailure counts a swallowed delete failure of a replaced blob.
func (m *Metrics) IncCleanupFailure() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// IncOrphanReported counts an orphan handed to the cleanup queue.
func (m *Metrics) IncOrphanReported() {
	if m == nil {
		return
	}
	m.orphansReported.Inc()
}

// ObserveStatusTransition records an aggregate status change. Same-status writes are ignored.
func (m *Metrics) ObserveStatusTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// ObserveSubmitSeconds records a submission duration.
func (m *Metrics) ObserveSubmitSeconds(seconds float64) {
	if m == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	m.submitDuration.Observe(seconds)
}

// IncOrphanJob counts a cleanup message outcome (received, deleted, skipped, failed, unrecoverable).
func (m *Metrics) IncOrphanJob(outcome string) {
	if m == nil {
		return
	}
	m.orphanJobs.WithLabelValues(outcome).Inc()
}

// Handler exposes metrics in Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
