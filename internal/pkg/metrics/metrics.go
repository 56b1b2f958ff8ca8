package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Orphan reasons
const (
	OrphanRowWriteFailed = "row_write_failed"
	OrphanReplaced       = "replaced_not_removed"
	OrphanRowDeleted     = "row_deleted_not_removed"
	OrphanSiblingFailed  = "sibling_upload_failed"
)

// Metrics tracks the artifact lifecycle and the duration of coordinator operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ArtifactsStored   *prometheus.CounterVec
	ArtifactsRemoved  *prometheus.CounterVec
	OrphanedArtifacts *prometheus.CounterVec
	ReconcileRemoved  prometheus.Counter
	OperationDuration *prometheus.HistogramVec
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in production
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ArtifactsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentinfo_artifacts_stored_total",
			Help: "Artifacts written to the artifact store, by result",
		}, []string{"result"}),
		ArtifactsRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentinfo_artifacts_removed_total",
			Help: "Artifact removals attempted, by result",
		}, []string{"result"}),
		OrphanedArtifacts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "studentinfo_orphaned_artifacts_total",
			Help: "Artifacts left without a referencing row, by reason",
		}, []string{"reason"}),
		ReconcileRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "studentinfo_reconcile_removed_total",
			Help: "Orphaned artifacts removed by the reconciler",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studentinfo_operation_duration_seconds",
			Help:    "Duration of coordinator operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

// ArtifactStored records a store attempt.
func (m *Metrics) ArtifactStored(err error) {
	if m == nil {
		return
	}
	m.ArtifactsStored.WithLabelValues(result(err)).Inc()
}

// ArtifactRemoved records a removal attempt.
func (m *Metrics) ArtifactRemoved(err error) {
	if m == nil {
		return
	}
	m.ArtifactsRemoved.WithLabelValues(result(err)).Inc()
}

// Orphaned records an artifact that was left behind.
func (m *Metrics) Orphaned(reason string) {
	if m == nil {
		return
	}
	m.OrphanedArtifacts.WithLabelValues(reason).Inc()
}

// Reconciled records artifacts removed by the reconciler.
func (m *Metrics) Reconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReconcileRemoved.Add(float64(n))
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() taken at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
