package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submitted prometheus.Counter
	outcomes  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	active    prometheus.Gauge
	queued    prometheus.Gauge
	duration  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "tasks_submitted_total",
			Help:      "Tasks accepted by Submit.",
		}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a terminal state, by status.",
		}, []string{"status"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "tasks_rejected_total",
			Help:      "Submit calls refused, by reason.",
		}, []string{"reason"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "tasks_active",
			Help:      "Tasks currently holding a thread.",
		}),
		queued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "tasks_queued",
			Help:      "Tasks waiting for a thread.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vusen",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Run time of tasks that started.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}
