package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the refresh counters of one view process
type Metrics struct {
	refreshTotal     *prometheus.CounterVec
	lastSuccess      prometheus.Gauge
	refreshDuration  prometheus.Histogram
	inflight         prometheus.Gauge
	schedulerRunning prometheus.Gauge
	detailTotal      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kanban",
				Name:      "refresh_total",
				Help:      "Overview fetch batches by result",
			},
			[]string{"result"}, // result: success, failure
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kanban",
			Name:      "last_refresh_success_timestamp_seconds",
			Help:      "Unix time of the last successful overview refresh",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kanban",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of overview fetch batches",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kanban",
			Name:      "refresh_inflight",
			Help:      "Overview fetch batches currently in flight",
		}),
		schedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kanban",
			Name:      "scheduler_running",
			Help:      "1 while the refresh scheduler lifecycle is armed",
		}),
		detailTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kanban",
				Name:      "detail_fetch_total",
				Help:      "Detail page fetches by result",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.refreshTotal,
			m.lastSuccess,
			m.refreshDuration,
			m.inflight,
			m.schedulerRunning,
			m.detailTotal,
		)
	}
	return m
}

// SchedulerHook marks the scheduler gauge for the duration of a lifecycle
func (m *Metrics) SchedulerHook() func() {
	m.schedulerRunning.Set(1)
	return func() { m.schedulerRunning.Set(0) }
}
