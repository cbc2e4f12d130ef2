package n2kd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the server's live counters to Prometheus, an optional
// enrichment layered on top of the mandatory select-loop behaviour (spec
// §9's design note on observability, supplemented per SPEC_FULL.md).
type Metrics struct {
	clients      prometheus.Gauge
	linesTotal   prometheus.Counter
	stateEntries prometheus.Gauge
	lastLines    float64
}

// NewMetrics registers the n2kd gauges/counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "n2kd_connected_clients",
			Help: "Number of TCP clients currently connected.",
		}),
		linesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "n2kd_lines_processed_total",
			Help: "Number of decoded PGN lines processed from stdin.",
		}),
		stateEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "n2kd_state_entries",
			Help: "Number of live entries in the per-source per-PGN state map.",
		}),
	}
}

// Sample updates the gauges/counters from a server snapshot. It is called
// periodically rather than on every event, since the counters only need to
// be eventually consistent for a /metrics scrape.
func (m *Metrics) Sample(s *Server) {
	clients, lines, state := s.Stats()
	m.clients.Set(float64(clients))
	m.stateEntries.Set(float64(state))
	m.linesTotal.Add(float64(lines) - m.lastLines)
	m.lastLines = float64(lines)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
