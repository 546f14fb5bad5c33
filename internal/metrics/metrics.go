package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	logins      *prometheus.CounterVec
	grants      *prometheus.CounterVec
	tokenIssued *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sso_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sso_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sso_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sso_logins_total",
			Help: "Login attempts by outcome and credential source.",
		}, []string{"outcome", "source"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sso_authorization_decisions_total",
			Help: "Consent approvals by access-gate decision.",
		}, []string{"client_id", "decision"}),
		tokenIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sso_token_requests_total",
			Help: "Token endpoint requests by grant type and outcome.",
		}, []string{"grant_type", "outcome"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight, m.requestsTotal, m.requestDuration,
		m.logins, m.grants, m.tokenIssued,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware labels by route template (c.Path()) to keep cardinality bounded.
func (m *Metrics) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
		m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(labels...).Inc()
		return err
	}
}

func (m *Metrics) ObserveLogin(outcome, source string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome, source).Inc()
}

func (m *Metrics) ObserveDecision(clientID, decision string) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(clientID, decision).Inc()
}

func (m *Metrics) ObserveToken(grantType, outcome string) {
	if m == nil {
		return
	}
	m.tokenIssued.WithLabelValues(grantType, outcome).Inc()
}
