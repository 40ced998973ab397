package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/web/metrics"
)

const RequestIDHeader = "X-Request-ID"

// Logger 记录每个请求一行访问日志
//
// X-Request-ID 缺失时生成并回写；路由带 :owner 时玩家 ID 进入请求 context，
// 下游日志自动带上 owner_id。
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()

		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(RequestIDHeader, rid)
		ctx := logger.WithRequestID(c.Request.Context(), rid)
		if owner := c.Param("owner"); owner != "" {
			ctx = logger.WithOwner(ctx, owner)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(begin),
			"ip", c.ClientIP(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			kv = append(kv, "query", q)
		}

		switch {
		case len(c.Errors) > 0:
			l.ErrorContext(ctx, "request failed", append(kv, "error", c.Errors.String())...)
		case status >= 400:
			l.WarnContext(ctx, "request rejected", kv...)
		default:
			l.DebugContext(ctx, "request", kv...)
		}
	}
}

// Metrics 按路由模板计数与计时，未匹配路由记为 unknown
func Metrics(m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(begin).Seconds())
	}
}
