package logger

import "sync"

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// Default 返回仅输出到控制台的兜底 logger，用于未注入日志的组件
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			defaultLogger = NewNoop()
			return
		}
		defaultLogger = l
	})
	return defaultLogger
}
