// Package metrics exposes prometheus instruments for uploads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes used as the result label.
const (
	ResultSuccess  = "success"
	ResultPartial  = "partial"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Uploads records ingestion outcomes. A nil *Uploads is a no-op.
type Uploads struct {
	total    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewUploads registers the upload instruments with reg.
func NewUploads(reg prometheus.Registerer) *Uploads {
	factory := promauto.With(reg)
	return &Uploads{
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payrolldesk",
			Subsystem: "upload",
			Name:      "total",
			Help:      "Total number of uploads by kind and result.",
		}, []string{"kind", "result"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payrolldesk",
			Subsystem: "upload",
			Name:      "rows_total",
			Help:      "Rows handled by uploads, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payrolldesk",
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "Latency distribution for uploads.",
			Buckets: []float64{
				0.01, 0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30, 60,
			},
		}, []string{"kind", "result"}),
	}
}

// Observe records one finished upload.
func (u *Uploads) Observe(kind, result string, elapsed time.Duration) {
	if u == nil {
		return
	}
	u.total.WithLabelValues(kind, result).Inc()
	u.duration.WithLabelValues(kind, result).Observe(elapsed.Seconds())
}

// Rows adds row counts for one upload. Outcome is created, updated,
// duplicate or failed.
func (u *Uploads) Rows(kind, outcome string, n int) {
	if u == nil || n <= 0 {
		return
	}
	u.rows.WithLabelValues(kind, outcome).Add(float64(n))
}
