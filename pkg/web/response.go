package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

// Response 管理接口统一响应体，Code 为 0 表示成功
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 200 + data
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: weberrors.CodeOK, Message: "ok", Data: data})
}

// Error 写错误响应并中断后续 handler
func Error(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{Code: code, Message: message})
}
