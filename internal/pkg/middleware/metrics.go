package middleware

import (
	"net/http"
	"time"

	"storefront_payments/pkg/metrics"
	"storefront_payments/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsMiddleware 记录 HTTP 请求指标
func MetricsMiddleware(collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 未匹配路由统一归类，避免标签基数爆炸
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// RecoveryMiddleware panic 兜底，返回统一错误结构
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("RequestID")),
		)
		response.Abort(c, http.StatusInternalServerError, response.ErrServerInternal, "internal server error")
	})
}
