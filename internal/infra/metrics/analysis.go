package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		analysisJobsTotal,
		analysisJobDurationMs,
		analysisJobPolls,
		analysisBatchesTotal,
		upstreamCallsTotal,
	)
}

var (
	analysisJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_jobs_total",
			Help: "Orchestrated analysis jobs by type and final status.",
		},
		[]string{"type", "status"}, // status: succeeded|failed|cancelled|timeout|error
	)

	analysisJobDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_job_duration_ms",
			Help:    "Wall time of one orchestrated job, context to result.",
			Buckets: []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000, 120000},
		},
		[]string{"type"},
	)

	analysisJobPolls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_job_polls",
			Help:    "Status polls needed before a job reached a terminal state.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		},
		[]string{"type"},
	)

	analysisBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_batches_total",
			Help: "Dispatched analysis batches by outcome.",
		},
		[]string{"result"}, // ok|invalid|quota|failed
	)

	upstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Calls to the analysis backend by operation and outcome.",
		},
		[]string{"op", "result"}, // result: ok|unavailable|rejected
	)
)

func ObserveJob(analysisType, status string, d time.Duration, polls int) {
	analysisJobsTotal.WithLabelValues(norm(analysisType), norm(status)).Inc()
	analysisJobDurationMs.WithLabelValues(norm(analysisType)).Observe(float64(d / time.Millisecond))
	if polls > 0 {
		analysisJobPolls.WithLabelValues(norm(analysisType)).Observe(float64(polls))
	}
}

func IncBatch(result string) {
	analysisBatchesTotal.WithLabelValues(norm(result)).Inc()
}

func IncUpstreamCall(op, result string) {
	upstreamCallsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
