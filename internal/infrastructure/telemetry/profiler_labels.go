package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

const (
	ProfilingLabelSurface   = "surface"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelOperation = "operation"
)

const MaxLabelValueLength = 128

// per-request values; each would open a new profile series
var unboundedLabels = []string{"request_id", "recipe_id", "trace_id", "span_id"}

// WithProfilingLabels runs fn with labels set as pprof goroutine labels,
// which is how Pyroscope slices profiles.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if pairs == nil {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

func HTTPRequestLabels(surface, route, method string) map[string]string {
	return map[string]string{
		ProfilingLabelSurface: surface,
		ProfilingLabelRoute:   route,
		ProfilingLabelMethod:  method,
	}
}

// sanitizeLabels flattens labels into key/value pairs ordered by the
// original key. Empty values, unbounded keys and keys with no usable
// characters are dropped.
func sanitizeLabels(labels map[string]string) []string {
	var pairs []string
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		v := labels[k]
		if v == "" || slices.Contains(unboundedLabels, k) {
			continue
		}
		key := labelKey(k)
		if key == "" {
			continue
		}
		pairs = append(pairs, key, v[:min(len(v), MaxLabelValueLength)])
	}
	return pairs
}

// labelKey lowercases k, turns spaces and dashes into underscores and
// drops anything outside [a-z0-9_].
func labelKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}, strings.ToLower(k))
}
