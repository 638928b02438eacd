package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/invoicing/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig controls which requests get Pyroscope labels attached.
type ProfilingConfig struct {
	Enabled bool
	// Exact paths and path prefixes excluded from labeling, typically
	// health probes and documentation endpoints.
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips health probes, metrics and swagger.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/healthz", "/ready", "/metrics"},
		SkipPathPrefixes: []string{"/swagger", "/api-docs"},
	}
}

// Profiling labels request execution for continuous profiling using the
// default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig attaches method, route and controller labels to
// the profiling context of each request. Labels use the matched route
// pattern, for example "/api/v1/invoices/:id", so cardinality stays
// bounded. Pyroscope can then slice profiles by endpoint.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	return func(c *gin.Context) {
		if skipProfiling(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func profilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 3)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}
	if controller := controllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	return labels
}

// controllerFromRoute picks the resource segment out of a route
// pattern: "/api/v1/invoices/:id/payments" yields "invoices".
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "", part == "api", isVersionSegment(part):
			continue
		case strings.HasPrefix(part, ":"), strings.HasPrefix(part, "{"):
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment reports whether a path segment looks like an API
// version marker such as "v1".
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
