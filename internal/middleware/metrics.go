package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/pkg/metrics"
)

// Metrics returns middleware that records request counters and latency.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
