package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Metrics exposes application-level instruments.
type Metrics struct {
	invoicesCreated *prometheus.CounterVec
	nudgeSends      *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	redRiskClients  *prometheus.GaugeVec
}

func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrikit_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nutrikit_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrikit_invoices_created_total",
			Help: "Invoices created by pricing model.",
		}, []string{"pricing_model"}),
		nudgeSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrikit_nudge_sends_total",
			Help: "Nudge notification attempts by outcome.",
		}, []string{"outcome"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrikit_rate_limit_denied_total",
			Help: "Requests denied by the rate limiter, per route.",
		}, []string{"route"}),
		redRiskClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nutrikit_red_risk_clients",
			Help: "Clients currently in the red risk band, per coach.",
		}, []string{"coach_id"}),
	}
	for _, c := range []prometheus.Collector{m.invoicesCreated, m.nudgeSends, m.rateLimitDenied, m.redRiskClients} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	return reg
}

func (m *Metrics) RecordInvoiceCreated(pricingModel string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(pricingModel).Inc()
}

func (m *Metrics) RecordNudgeSend(ok bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	m.nudgeSends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRateLimitDenied(route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(route).Inc()
}

func (m *Metrics) SetRedRiskClients(coachID string, n int) {
	if m == nil {
		return
	}
	m.redRiskClients.WithLabelValues(coachID).Set(float64(n))
}

// GinMiddleware records request counts and latency.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
