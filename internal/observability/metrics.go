package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	RemoteCalls    *prometheus.CounterVec
	RemoteLatency  *prometheus.HistogramVec
	CartOperations *prometheus.CounterVec
	CartLatency    *prometheus.HistogramVec
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	Webhooks       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shopify",
			Name:      "requests_total",
			Help:      "Storefront API calls by operation and outcome.",
		}, []string{"operation", "status"}),
		RemoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "shopify",
			Name:      "request_duration_seconds",
			Help:      "Storefront API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CartOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Remote cart operations by kind and final status.",
		}, []string{"kind", "status"}),
		CartLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operation_duration_seconds",
			Help:      "Time from dispatch to completion of a remote cart operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Revalidation webhook deliveries by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RemoteCalls, m.RemoteLatency,
		m.CartOperations, m.CartLatency,
		m.Requests, m.RequestLatency,
		m.Webhooks,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRemoteCall(operation string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RemoteCalls.WithLabelValues(operation, status).Inc()
	m.RemoteLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCartOperation(kind, status string, elapsed time.Duration) {
	m.CartOperations.WithLabelValues(kind, status).Inc()
	m.CartLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveWebhook(outcome string) {
	m.Webhooks.WithLabelValues(outcome).Inc()
}

// GinMiddleware records every request under its route pattern.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.Requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
