package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/astropenguin/ndradex/internal/radex"
)

// JobMetrics instruments grid execution: a counter of terminal job results
// by status and a histogram of solver wall-clock durations. It implements
// the dispatcher's Observer interface.
type JobMetrics struct {
	jobsTotal *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewJobMetrics creates the job metrics and registers them.
//
// Parameters:
//   - reg: The registry to register with; nil uses the default registerer.
//
// Returns:
//   - *JobMetrics: The registered metrics.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &JobMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ndradex",
			Name:      "jobs_total",
			Help:      "Terminal grid job results by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ndradex",
			Name:      "solver_duration_seconds",
			Help:      "Wall-clock duration of solver subprocess runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 12),
		}),
	}
	reg.MustRegister(m.jobsTotal, m.duration)
	return m
}

// ObserveJob records one terminal job result.
func (m *JobMetrics) ObserveJob(status radex.Status, elapsed time.Duration) {
	m.jobsTotal.WithLabelValues(status.String()).Inc()
	m.duration.Observe(elapsed.Seconds())
}
