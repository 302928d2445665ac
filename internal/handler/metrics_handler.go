package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dolphinlong/timetable-core/pkg/metrics"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *metrics.Service
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(m *metrics.Service) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready always responds 200 with a "ready" status; it does not check the
// entity-store connection or any other dependency.
func (h *MetricsHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
