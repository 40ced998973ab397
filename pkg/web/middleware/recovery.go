package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

// Recovery 捕获 handler panic，记录堆栈并返回 50000
//
// 客户端已断开（broken pipe / connection reset）时只记录，不再写响应。
func Recovery(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if err, ok := rec.(error); ok && clientGone(err) {
				l.Warn("client disconnected during response", "path", c.Request.URL.Path, "error", err)
				c.Abort()
				return
			}

			l.ErrorContext(c.Request.Context(), "panic in admin handler",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    weberrors.CodeInternalError,
				"message": "internal error",
			})
		}()
		c.Next()
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
