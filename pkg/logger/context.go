package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	ownerKey ctxKey = iota
	requestIDKey
)

// WithOwner 记录当前操作的玩家，*Context 日志会带上 owner_id
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// WithRequestID 记录管理接口请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// OwnerFromContext 读取 WithOwner 写入的玩家标识
func OwnerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(ownerKey).(string)
	return v, ok && v != ""
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if owner, ok := OwnerFromContext(ctx); ok {
		fields = append(fields, zap.String("owner_id", owner))
	}
	if rid, ok := ctx.Value(requestIDKey).(string); ok && rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	return fields
}
