// Package middleware holds cmd/schedulerd's gin middleware, grounded on
// the teacher's internal/middleware package.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dolphinlong/timetable-core/pkg/metrics"
)

// Metrics returns middleware that records HTTP request telemetry via m.
func Metrics(m *metrics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		m.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
