// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_document_uploads_total",
			Help: "Total number of document upload attempts by type and result",
		},
		[]string{"document_type", "result"},
	)

	DocumentUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_document_upload_bytes",
			Help:    "Size distribution of uploaded documents",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_submissions_total",
			Help: "Total number of application submissions by result",
		},
		[]string{"result"},
	)

	DraftSyncOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_draft_sync_outcomes_total",
			Help: "Draft synchronization outcomes per operation",
		},
		[]string{"operation", "outcome"},
	)

	HistoryCooldownSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_history_cooldown_skips_total",
			Help: "History queries skipped while the permission cooldown is open",
		},
	)
)
