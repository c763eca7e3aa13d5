package optimizations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		passes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sqlengine_planner_optimizer_passes_total",
			Help: "Total number of optimizer passes by pass name and result",
		}, []string{"pass", "result"}),
		passDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sqlengine_planner_optimizer_pass_duration_seconds",
			Help:    "Time spent in a single optimizer pass",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"pass"}),
	}
}
