package logger

import "go.uber.org/zap/zapcore"

// Option Logger 构建选项
type Option func(*ZapLogger)

// WithHooks 追加写出前钩子，例如错误上报
func WithHooks(hooks ...Hook) Option {
	return func(l *ZapLogger) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithCore 追加输出 Core，测试中用于挂 observer
func WithCore(core zapcore.Core) Option {
	return func(l *ZapLogger) {
		l.cores = append(l.cores, core)
	}
}
