package logger

import "context"

// Logger 结构化日志接口，keysAndValues 为交替的 key/value
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})

	// *Context 版本额外输出 context 中的 owner_id 与 request_id
	DebugContext(ctx context.Context, msg string, keysAndValues ...interface{})
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})

	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger
	Sync() error
}

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 丢弃全部日志，用于测试和未注入日志的组件
type NoopLogger struct{}

// NewNoop 创建 NoopLogger
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (n *NoopLogger) Debug(string, ...interface{}) {}
func (n *NoopLogger) Info(string, ...interface{}) {}
func (n *NoopLogger) Warn(string, ...interface{}) {}
func (n *NoopLogger) Error(string, ...interface{}) {}
func (n *NoopLogger) DebugContext(context.Context, string, ...interface{}) {}
func (n *NoopLogger) InfoContext(context.Context, string, ...interface{}) {}
func (n *NoopLogger) WarnContext(context.Context, string, ...interface{}) {}
func (n *NoopLogger) ErrorContext(context.Context, string, ...interface{}) {}
func (n *NoopLogger) Named(string) Logger { return n }
func (n *NoopLogger) WithFields(...interface{}) Logger { return n }
func (n *NoopLogger) Sync() error { return nil }
