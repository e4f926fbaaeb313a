package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/therapy-center-api/internal/models"
	"github.com/noah-isme/therapy-center-api/internal/service"
	"github.com/noah-isme/therapy-center-api/pkg/response"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw
// URLs such as /therapy/<uuid> out of the label set.
const unmatchedRoute = "unmatched"

// Metrics records latency per route template and counts error responses,
// split by conflict reason for rejected bookings.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))

		if appErr := response.RenderedError(c); appErr != nil {
			metricsSvc.RecordErrorResponse(route, appErr.Code, conflictReason(appErr.Details))
		}
	}
}

func conflictReason(details interface{}) string {
	if detail, ok := details.(models.ConflictDetail); ok {
		return string(detail.Reason)
	}
	return ""
}
