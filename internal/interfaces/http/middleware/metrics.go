// Package middleware provides HTTP middleware for the invoicing service.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/invoicing/backend/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig configures the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	ServiceName   string
	Enabled       bool
}

// httpMetrics bundles the instruments recorded per request.
type httpMetrics struct {
	total    *telemetry.Counter
	duration *telemetry.Histogram
	reqSize  *telemetry.Histogram
	respSize *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}

	var err error
	if m.total, err = telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	); err != nil {
		return nil, err
	}

	if m.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if m.reqSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size distribution in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
	}); err != nil {
		return nil, err
	}

	if m.respSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000},
	}); err != nil {
		return nil, err
	}

	if m.active, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// HTTPMetrics returns a Gin middleware recording request count, latency,
// request and response sizes, and an in-flight gauge. When metrics are
// disabled or instrument creation fails the middleware is a no-op.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}

	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter builds the metrics middleware on a caller-supplied
// meter. Mostly useful in tests.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passthrough
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := max(c.Request.ContentLength, 0)

		metrics.active.Add(ctx, 1)
		c.Next()
		metrics.active.Add(ctx, -1)

		metrics.record(ctx, recordedRequest{
			method:       c.Request.Method,
			route:        routePattern(c),
			statusCode:   c.Writer.Status(),
			duration:     time.Since(start),
			requestSize:  requestSize,
			responseSize: c.Writer.Size(),
		})
	}
}

func passthrough(c *gin.Context) {
	c.Next()
}

type recordedRequest struct {
	method       string
	route        string
	statusCode   int
	duration     time.Duration
	requestSize  int64
	responseSize int
}

func (m *httpMetrics) record(ctx context.Context, r recordedRequest) {
	m.total.Inc(ctx,
		telemetry.AttrHTTPMethod.String(r.method),
		telemetry.AttrHTTPRoute.String(r.route),
		telemetry.AttrHTTPStatusCode.Int(r.statusCode),
	)

	// Histograms carry only method and route to keep cardinality down.
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(r.method),
		telemetry.AttrHTTPRoute.String(r.route),
	}
	m.duration.RecordDuration(ctx, r.duration, attrs...)

	if r.requestSize > 0 {
		m.reqSize.Record(ctx, float64(r.requestSize), attrs...)
	}
	if r.responseSize > 0 {
		m.respSize.Record(ctx, float64(r.responseSize), attrs...)
	}
}

// routePattern labels metrics with the matched route template, for
// example "/api/v1/invoices/:id", never the raw path.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
