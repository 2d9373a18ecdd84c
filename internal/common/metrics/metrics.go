// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ScoreComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_computations_total",
			Help: "Score records produced, by model and source",
		},
		[]string{"model_type", "source"},
	)

	ScoreComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_compute_duration_seconds",
			Help:    "Time spent producing one score record",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"source"},
	)

	ScoreCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_cache_requests_total",
			Help: "Score cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ScoreCommitConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_commit_conflicts_total",
			Help: "Version conflicts seen while committing score records",
		},
	)

	ScoreDistribution = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_score_value",
			Help:    "Distribution of committed scores on the 0-10 scale",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
		[]string{"product_type"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_notifications_total",
			Help: "Score change notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	ClassifierTrainings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_classifier_trainings_total",
			Help: "Classifier training attempts by status",
		},
		[]string{"status"},
	)

	ClassifierHoldoutAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoring_classifier_holdout_accuracy",
			Help: "Holdout accuracy of the active classifier",
		},
	)
)
