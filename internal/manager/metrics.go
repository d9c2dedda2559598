package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vistora",
			Subsystem: "jobs",
			Name:      "created_total",
			Help:      "Jobs accepted, by quality tier",
		},
		[]string{"tier"},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vistora",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Jobs reaching a terminal status",
		},
		[]string{"status"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vistora",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Jobs waiting for the worker",
		},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vistora",
			Name:      "job_duration_seconds",
			Help:      "Wall time from dequeue to terminal status",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"status", "runner"},
	)

	creditsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vistora",
			Subsystem: "credits",
			Name:      "settled_total",
			Help:      "Credits settled, by ledger entry kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(jobsCreatedTotal, jobsFinishedTotal, queueDepth, jobDuration, creditsSettledTotal)
}
