package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector methods are safe to call on a nil receiver so tests can run
// without a registry.
type Collector struct {
	RequestDuration  *prometheus.HistogramVec
	BookingsTotal    *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	Subscribers      prometheus.Gauge
	SweptProjections prometheus.Counter
}

func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "route", "status"}),

		BookingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "bookings_total",
			Help:      "Booking attempts by result.",
		}, []string{"result"}),

		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "transitions_total",
			Help:      "Consultation state machine operations by action and result.",
		}, []string{"action", "result"}),

		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Open queue-state websocket connections.",
		}),

		SweptProjections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "expired_public_tickets_deleted_total",
			Help:      "Expired public ticket projections removed by the sweeper.",
		}),
	}
}

func (c *Collector) Booking(result string) {
	if c == nil {
		return
	}
	c.BookingsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) Transition(action, result string) {
	if c == nil {
		return
	}
	c.TransitionsTotal.WithLabelValues(action, result).Inc()
}

func (c *Collector) SubscriberAdded() {
	if c == nil {
		return
	}
	c.Subscribers.Inc()
}

func (c *Collector) SubscriberRemoved() {
	if c == nil {
		return
	}
	c.Subscribers.Dec()
}

func (c *Collector) Swept(n int64) {
	if c == nil {
		return
	}
	c.SweptProjections.Add(float64(n))
}

func (c *Collector) ObserveRequest(method, route, status string, seconds float64) {
	if c == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
