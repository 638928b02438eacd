package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// RequestIDKey carries the request ID on a context so that lower layers
// (gorm tracing in particular) can tag their output with it.
const RequestIDKey contextKey = "request_id"

// WithRequestID stores the request ID on the context so GetRequestID can
// recover it further down the stack.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID reads the request ID from the context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithTraceContext returns the logger with trace_id and span_id fields taken
// from the active span, or the logger unchanged when there is no valid span.
func WithTraceContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
