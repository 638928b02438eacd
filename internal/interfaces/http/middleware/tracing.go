// Package middleware provides HTTP middleware for the invoicing service.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps request IDs taken from headers so an oversized
// header cannot bloat span attributes.
const MaxRequestIDLength = 128

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin and tags each span with the request ID.
// Span names follow otelgin's "METHOD route" convention, for example
// "GET /api/v1/invoices/:id".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	otel := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		otel(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if id := getTraceRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
	}
}

// getTraceRequestID prefers the ID placed in the gin context by the
// RequestID middleware and falls back to the inbound header, truncated.
func getTraceRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		headerID = headerID[:MaxRequestIDLength]
	}
	return headerID
}

// SpanErrorMarker flags the active span as errored when the response status
// is 4xx or 5xx. Place it after the tracing middleware in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		var msg string
		switch {
		case status >= http.StatusInternalServerError:
			msg = "Internal Server Error"
		case status == http.StatusNotFound:
			msg = "Not Found"
		case status == http.StatusConflict:
			msg = "Conflict"
		default:
			msg = "Client Error"
		}
		span.SetStatus(codes.Error, msg)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
