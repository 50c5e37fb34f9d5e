package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatapp_client"

// Metrics is safe to use through a nil pointer, in which case nothing is
// recorded.
type Metrics struct {
	gatherer prometheus.Gatherer

	eventsTotal   *prometheus.CounterVec
	parseErrors   prometheus.Counter
	heartbeats    prometheus.Counter
	disconnects   prometheus.Counter
	actionsTotal  *prometheus.CounterVec
	pendingLookup prometheus.Gauge
}

func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		gatherer: registry,

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dispatch events applied to the cache, by tag",
		}, []string{"event"}),

		parseErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Inbound frames dropped because they could not be decoded",
		}),

		heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Heartbeat frames sent",
		}),

		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Gateway connections that closed",
		}),

		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Outbound write actions, by action and result",
		}, []string{"action", "result"}),

		pendingLookup: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_correlations",
			Help:      "Creations waiting for their event on the stream",
		}),
	}
}

func (m *Metrics) Event(tag string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(tag).Inc()
}

func (m *Metrics) ParseError() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

func (m *Metrics) Heartbeat() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}

func (m *Metrics) Disconnect() {
	if m == nil {
		return
	}
	m.disconnects.Inc()
}

func (m *Metrics) Action(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.actionsTotal.WithLabelValues(action, result).Inc()
}

func (m *Metrics) SetPendingCorrelations(n int) {
	if m == nil {
		return
	}
	m.pendingLookup.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
