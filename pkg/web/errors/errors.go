// Package errors 管理接口业务错误码，前两位与 HTTP 状态对应
package errors

import "net/http"

const (
	CodeOK            = 0
	CodeInvalidParams = 40001
	CodeNotFound      = 40004
	CodeConflict      = 40009
	CodeRateLimited   = 40029
	CodeInternalError = 50000
	CodeUnavailable   = 50003
)

var statusByCode = map[int]int{
	CodeOK:            http.StatusOK,
	CodeInvalidParams: http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeRateLimited:   http.StatusTooManyRequests,
	CodeInternalError: http.StatusInternalServerError,
	CodeUnavailable:   http.StatusServiceUnavailable,
}

// CodeToStatus 未登记的 4xxxx 视为 400，5xxxx 视为 500
func CodeToStatus(code int) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	switch {
	case code >= 50000:
		return http.StatusInternalServerError
	case code >= 40000:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}
