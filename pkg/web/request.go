package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	weberrors "github.com/ImOpaque/GensTools-sub000/pkg/web/errors"
)

// BindURI 绑定并校验路径参数；返回 false 时 400 响应已写出
func BindURI(c *gin.Context, obj any) bool {
	err := c.ShouldBindUri(obj)
	if err == nil {
		return true
	}

	msg := err.Error()
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fe.Field()+" failed "+fe.Tag())
		}
		msg = strings.Join(parts, "; ")
	}
	Error(c, http.StatusBadRequest, weberrors.CodeInvalidParams, "invalid path parameters: "+msg)
	return false
}
