package sentry

import (
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// LoggerHook 不低于 min 的日志上报为事件
//
// "error" 字段若为 error 则按异常上报，其余字段进入 extra，logger 名称作为标签。
func LoggerHook(c *Client, min logger.Level) logger.Hook {
	return logger.LevelHook(min, func(entry zapcore.Entry, fields []zapcore.Field) {
		if !c.Enabled() {
			return
		}

		enc := zapcore.NewMapObjectEncoder()
		var cause error
		for _, f := range fields {
			if f.Type == zapcore.ErrorType {
				if err, ok := f.Interface.(error); ok && cause == nil {
					cause = err
				}
			}
			f.AddTo(enc)
		}
		if entry.Caller.Defined {
			enc.Fields["caller"] = entry.Caller.TrimmedPath()
		}

		var tags map[string]string
		if entry.LoggerName != "" {
			tags = map[string]string{"logger": entry.LoggerName}
		}
		c.Report(eventLevel(entry.Level), entry.Message, cause, tags, enc.Fields)
	})
}

func eventLevel(l zapcore.Level) sentry.Level {
	switch {
	case l >= zapcore.DPanicLevel:
		return sentry.LevelFatal
	case l >= zapcore.ErrorLevel:
		return sentry.LevelError
	default:
		return sentry.LevelWarning
	}
}
