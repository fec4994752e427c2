package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
)

// ProfilingLabels tags the rest of the chain with surface, route and method
// pprof labels so continuous profiles can be split per endpoint. Disabled
// returns a pass-through handler.
func ProfilingLabels(enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	return func(c *gin.Context) {
		route := routeOf(c)
		labels := telemetry.HTTPRequestLabels(surfaceFor(route), route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
