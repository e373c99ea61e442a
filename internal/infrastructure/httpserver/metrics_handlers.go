package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests by cache outcome",
		},
		[]string{"method", "endpoint", "status", "cache"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	metricsHandler http.Handler = promhttp.Handler()
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	s.logger.Info("Prometheus metrics initialized and registered")
	s.logger.WithFields(map[string]interface{}{
		"http_requests_total":              "Counter for HTTP requests by method, endpoint, status, cache",
		"http_request_duration":            "Histogram for HTTP request duration by method, endpoint",
		"gateway_requests_total":           "Counter for gateway operations by resource, outcome, failure",
		"gateway_request_duration_seconds": "Histogram for gateway operation latency by outcome",
		"metrics_endpoint":                 "/metrics",
	}).Debug("Available Prometheus metrics")
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	s.logger.Debug("Serving Prometheus metrics")
	metricsHandler.ServeHTTP(c.Response(), c.Request())
	return nil
}
