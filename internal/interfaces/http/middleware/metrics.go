package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Values of the surface attribute on HTTP instruments.
const (
	SurfaceREST    = "rest"
	SurfaceGraphQL = "graphql"
	SurfaceSystem  = "system"
)

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unknown"

type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
	Logger        *zap.Logger
}

var bodySizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

type serverInstruments struct {
	requests  *telemetry.Counter
	latency   *telemetry.Histogram
	reqBytes  *telemetry.Histogram
	respBytes *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
}

func sizeHistogram(meter metric.Meter, name, what string) (*telemetry.Histogram, error) {
	return telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        name,
		Description: what + " body size in bytes",
		Unit:        "By",
		Boundaries:  bodySizeBuckets,
	})
}

func newServerInstruments(meter metric.Meter) (*serverInstruments, error) {
	var (
		in  serverInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total",
		"HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "Time to serve an HTTP request",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if in.reqBytes, err = sizeHistogram(meter, "http_server_request_size_bytes", "Request"); err != nil {
		return nil, err
	}
	if in.respBytes, err = sizeHistogram(meter, "http_server_response_size_bytes", "Response"); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics counts and times requests per method, matched route and
// surface (rest, graphql or system). It is a no-op unless enabled with a
// live meter provider.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), cfg.Logger)
}

// HTTPMetricsWithMeter is HTTPMetrics over a caller-supplied meter.
func HTTPMetricsWithMeter(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	in, err := newServerInstruments(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}
	return in.observe
}

func passThrough(c *gin.Context) {
	c.Next()
}

func (in *serverInstruments) observe(c *gin.Context) {
	ctx := c.Request.Context()
	started := time.Now()
	received := c.Request.ContentLength

	in.inFlight.Add(ctx, 1)
	c.Next()
	in.inFlight.Add(ctx, -1)

	route := routeOf(c)
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
		telemetry.AttrSurface.String(surfaceFor(route)),
	}
	in.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
	in.latency.RecordDuration(ctx, time.Since(started), attrs...)
	if received > 0 {
		in.reqBytes.Record(ctx, float64(received), attrs...)
	}
	if sent := c.Writer.Size(); sent > 0 {
		in.respBytes.Record(ctx, float64(sent), attrs...)
	}
}

// routeOf is the route template, never the raw path, so ids stay out of
// label values.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func surfaceFor(route string) string {
	if strings.HasSuffix(route, "/graphql") {
		return SurfaceGraphQL
	}
	if strings.Contains(route, "/recipes") {
		return SurfaceREST
	}
	return SurfaceSystem
}
