package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stake-plus/council-treasury/src/council/governance"
)

// Metrics counts committed governance events and API traffic. It is an
// event sink for the engine.
type Metrics struct {
	reg      *prometheus.Registry
	events   *prometheus.CounterVec
	funded   prometheus.Counter
	released prometheus.Counter
	sweeps   *prometheus.CounterVec
	requests *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "council",
			Name:      "events_total",
			Help:      "Committed governance events by kind.",
		}, []string{"kind"}),
		funded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "council",
			Name:      "treasury_funded_units_total",
			Help:      "Asset units contributed to treasuries.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "council",
			Name:      "treasury_released_units_total",
			Help:      "Asset units released from treasuries.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "council",
			Name:      "sweeps_total",
			Help:      "Expiry sweeps by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "council",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.reg.MustRegister(m.events, m.funded, m.released, m.sweeps, m.requests,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Publish(_ context.Context, ev governance.Event) error {
	m.events.WithLabelValues(ev.Kind).Inc()
	switch ev.Kind {
	case governance.EventFunded:
		m.funded.Add(float64(ev.Amount))
	case governance.EventFundsReleased:
		m.released.Add(float64(ev.Amount))
	}
	return nil
}

// Sweep records the outcome of one expiry sweep.
func (m *Metrics) Sweep(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sweeps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
