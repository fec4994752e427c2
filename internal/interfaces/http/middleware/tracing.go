// Package middleware provides HTTP middleware for the recipes API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// nil uses the global provider
	TracerProvider trace.TracerProvider
}

// Tracing opens a server span per request through otelgin, named
// "METHOD route" (e.g. "GET /recipes/:id").
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	if cfg.TracerProvider == nil {
		return otelgin.Middleware(cfg.ServiceName)
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithTracerProvider(cfg.TracerProvider))
}

// MarkSpanErrors copies the request ID onto the server span and flags it
// as failed for 4xx and 5xx answers. Register it after Tracing. otelgin
// sets the status again once the chain returns, replacing any description
// on 5xx, so the error class is carried by http.error_class instead.
func MarkSpanErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			class := spanErrorText(status)
			span.SetStatus(codes.Error, class)
			span.SetAttributes(
				attribute.Int("http.status_code", status),
				attribute.String("http.error_class", class),
			)
		}
	}
}

func spanErrorText(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusNotFound:
		return "Not Found"
	case status == http.StatusTooManyRequests:
		return "Rate Limited"
	}
	return "Client Error"
}
