// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts admitted jobs by model tier.
	JobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxledger_jobs_submitted_total",
		Help: "Jobs admitted into the pipeline.",
	}, []string{"tier"})

	// JobsCompleted counts jobs that reached completed, by tier.
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxledger_jobs_completed_total",
		Help: "Jobs that completed successfully.",
	}, []string{"tier"})

	// JobsFailed counts terminal failures, by tier.
	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxledger_jobs_failed_total",
		Help: "Jobs that ended in failed.",
	}, []string{"tier"})

	// QuotaRejections counts admissions denied for insufficient quota.
	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxledger_quota_rejections_total",
		Help: "Submissions rejected by the quota ledger.",
	})

	// MinutesProcessed accumulates billable audio minutes.
	MinutesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxledger_minutes_processed_total",
		Help: "Billable audio minutes across completed jobs.",
	})

	// TranscriptionSeconds observes wall-clock engine invocation time.
	TranscriptionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxledger_transcription_duration_seconds",
		Help:    "Engine invocation latency.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"tier"})
)
