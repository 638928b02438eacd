package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys attached to profile samples.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	// ProfilingLabelRegion marks code regions such as "billing_late_fees".
	ProfilingLabelRegion = "region"
)

// MaxLabelValueLength caps label values so a single runaway value cannot
// blow up cardinality on the Pyroscope side.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists keys that sanitizeLabels silently drops.
// Per-request identifiers as profile labels would create one series per
// request. Do not mutate at runtime.
var HighCardinalityLabels = map[string]bool{
	"request_id": true,
	"invoice_id": true,
	"payment_id": true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// WithProfilingLabels runs fn with the given labels attached to its profile
// samples, so profiles can be sliced by handler or region in the Pyroscope
// UI. The map is copied, and keys in HighCardinalityLabels are dropped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	copied := make(map[string]string, len(labels))
	maps.Copy(copied, labels)

	pairs := sanitizeLabels(copied)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// RegionLabels builds the label set for a named code region, merged with any
// extra labels.
func RegionLabels(region string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extra)
	return labels
}

// sanitizeLabels flattens the map into key/value pairs in sorted key order,
// dropping empty and high-cardinality entries and truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" || HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if key = sanitizeLabelKey(key); key == "" {
			continue
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases the key and strips everything that is not
// [a-z0-9_], mapping spaces and dashes to underscores first.
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	return string(out)
}
