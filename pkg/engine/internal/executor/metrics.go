package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Split states used as metric label values.
const (
	splitStateAssigned = "assigned"
	splitStateRejected = "rejected"
)

// DriverMetrics are the metrics shared by all drivers of an engine.
type DriverMetrics struct {
	pages  prometheus.Counter
	rows   prometheus.Counter
	splits *prometheus.CounterVec
}

// NewDriverMetrics creates DriverMetrics registered to reg. A nil reg
// leaves the metrics unregistered.
func NewDriverMetrics(reg prometheus.Registerer) *DriverMetrics {
	return &DriverMetrics{
		pages: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sqlengine_driver_pages_total",
			Help: "Total number of pages produced by the last operator of a pipeline",
		}),
		rows: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sqlengine_driver_rows_total",
			Help: "Total number of rows produced by the last operator of a pipeline",
		}),
		splits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sqlengine_driver_splits_total",
			Help: "Total number of splits assigned to drivers by state",
		}, []string{"state"}),
	}
}
