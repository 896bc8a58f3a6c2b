package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/repodesk/repodesk/internal/orchestrator"
)

// Metrics counts tasks passing through a Runner.
type Metrics struct {
	Submitted *prometheus.CounterVec
	Finished  *prometheus.CounterVec
	InFlight  prometheus.Gauge
}

// NewMetrics creates the runner collectors and registers them on reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repodesk",
			Name:      "tasks_submitted_total",
			Help:      "Tasks submitted to the background runner.",
		}, []string{"task"}),
		Finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repodesk",
			Name:      "tasks_finished_total",
			Help:      "Tasks that delivered an outcome, by status.",
		}, []string{"task", "status"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "repodesk",
			Name:      "tasks_inflight",
			Help:      "Tasks currently holding their locks and running.",
		}),
	}
}

func (m *Metrics) submitted(task string) {
	m.Submitted.WithLabelValues(task).Inc()
}

func (m *Metrics) started() {
	m.InFlight.Inc()
}

func (m *Metrics) finished(task string, status orchestrator.Status) {
	m.InFlight.Dec()
	m.Finished.WithLabelValues(task, string(status)).Inc()
}
