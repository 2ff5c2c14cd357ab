// Package metrics exposes the booking counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking"

type Metrics struct {
	registry *prometheus.Registry

	checkouts         *prometheus.CounterVec
	settlementSeconds prometheus.Histogram
	orderTransitions  *prometheus.CounterVec
	revenue           prometheus.Counter
	couponsApplied    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every collector on a private registry so that tests can build
// as many instances as they need.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		settlementSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_seconds",
			Help:      "Time spent waiting for payment settlement.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 4, 8},
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Order status changes by target status and kind.",
		}, []string{"status", "kind"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Sum of settled order totals.",
		}),
		couponsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applications_total",
			Help:      "Coupon application attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkouts,
		m.settlementSeconds,
		m.orderTransitions,
		m.revenue,
		m.couponsApplied,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Nil receivers are allowed so components can run without metrics.

func (m *Metrics) CheckoutResult(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSettlement(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementSeconds.Observe(d.Seconds())
}

func (m *Metrics) OrderStatusChanged(status, kind string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status, kind).Inc()
}

func (m *Metrics) AddRevenue(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.revenue.Add(amount)
}

func (m *Metrics) CouponApplied(ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.couponsApplied.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
