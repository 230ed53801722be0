// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcp-simple-bolus/internal/bolus"
	"mcp-simple-bolus/internal/models"
)

type Metrics struct {
	registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	alerts         *prometheus.CounterVec
	dosesRecorded  prometheus.Counter
	unitsRecorded  prometheus.Counter
	activeSessions prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simple_bolus",
			Subsystem: "pipeline",
			Name:      "submissions_total",
			Help:      "Bolus submissions by terminal state",
		}, []string{"state"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simple_bolus",
			Subsystem: "pipeline",
			Name:      "alerts_total",
			Help:      "Alerts produced by submissions, by kind",
		}, []string{"kind"}),
		dosesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "simple_bolus",
			Subsystem: "delivery",
			Name:      "doses_recorded_total",
			Help:      "Boluses handed to delivery and recorded",
		}),
		unitsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "simple_bolus",
			Subsystem: "delivery",
			Name:      "units_recorded_total",
			Help:      "Insulin units handed to delivery and recorded",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "simple_bolus",
			Subsystem: "server",
			Name:      "active_sessions",
			Help:      "Open bolus entry sessions",
		}),
	}
}

func (m *Metrics) ObserveOutcome(out bolus.Outcome) {
	m.submissions.WithLabelValues(string(out.State)).Inc()
	if out.Alert != bolus.AlertNone {
		m.alerts.WithLabelValues(string(out.Alert)).Inc()
	}
}

func (m *Metrics) ObserveDose(dose models.DoseEntry) {
	m.dosesRecorded.Inc()
	m.unitsRecorded.Add(dose.Units)
}

func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
