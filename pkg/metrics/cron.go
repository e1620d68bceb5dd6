package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// BackgroundJobMetrics tracks the cron worker's sweeps, chiefly expiry of
// abandoned checkouts. A stale last-success gauge means pending orders are
// holding stock longer than the checkout TTL allows.
type BackgroundJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics returns a no-op recorder when reg is nil.
func NewCronJobMetrics(reg prometheus.Registerer) *BackgroundJobMetrics {
	m := &BackgroundJobMetrics{now: time.Now}
	if reg == nil {
		return m
	}
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "_cron_job_runs_total",
		Help: "Background sweep runs by job and outcome.",
	}, []string{"job", "outcome"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    namespace + "_cron_job_duration_seconds",
		Help:    "Wall time of one background sweep.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"job"})
	m.lastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: namespace + "_cron_job_last_success_timestamp_seconds",
		Help: "Unix time the job last finished without error.",
	}, []string{"job"})
	reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	return m
}

// RecordRun counts one finished run of job.
func (m *BackgroundJobMetrics) RecordRun(job string, took time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	if job == "" {
		job = "unnamed"
	}
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, outcomeError).Inc()
		return
	}
	m.runs.WithLabelValues(job, outcomeOK).Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(m.now().Unix()))
}
