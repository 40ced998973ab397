package logger

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

var _ Logger = (*ZapLogger)(nil)

// ZapLogger 基于 zap 的 Logger 实现
type ZapLogger struct {
	zl    *zap.Logger
	cfg   *Config
	hooks []Hook
	cores []zapcore.Core
}

// New 按配置创建 Logger，cfg 可以只填写部分字段
func New(cfg *Config, opts ...Option) (*ZapLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge log config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	l := &ZapLogger{cfg: merged}
	for _, opt := range opts {
		opt(l)
	}

	core, err := l.buildCore()
	if err != nil {
		return nil, err
	}

	zopts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if merged.StacktraceLevel != "" {
		zopts = append(zopts, zap.AddStacktrace(toZapLevel(merged.StacktraceLevel)))
	}
	l.zl = zap.New(core, zopts...).With(fixedFields(merged.Fields)...)
	return l, nil
}

// buildCore 组装输出 Core：控制台/文件 + 额外 Core，再套一层钩子
func (l *ZapLogger) buildCore() (zapcore.Core, error) {
	ec := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var enc zapcore.Encoder
	if l.cfg.Format == JSONFormat {
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		enc = zapcore.NewConsoleEncoder(ec)
	}

	var sinks []zapcore.WriteSyncer
	if l.cfg.Console {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if l.cfg.File.Enabled {
		w, err := fileWriter(&l.cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", l.cfg.File.Path, err)
		}
		sinks = append(sinks, zapcore.AddSync(w))
	}

	cores := append([]zapcore.Core{
		zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), toZapLevel(l.cfg.Level)),
	}, l.cores...)

	var core zapcore.Core = zapcore.NewTee(cores...)
	if len(l.hooks) > 0 {
		core = &hookedCore{Core: core, hooks: l.hooks}
	}
	return core, nil
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// fixedFields 按 key 排序，保证输出稳定
func fixedFields(m map[string]string) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.String(k, m[k]))
	}
	return fields
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toFields(keysAndValues)...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, toFields(keysAndValues)...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, toFields(keysAndValues)...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, toFields(keysAndValues)...)
}

func (l *ZapLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, append(contextFields(ctx), toFields(keysAndValues)...)...)
}

func (l *ZapLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, append(contextFields(ctx), toFields(keysAndValues)...)...)
}

func (l *ZapLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, append(contextFields(ctx), toFields(keysAndValues)...)...)
}

func (l *ZapLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, append(contextFields(ctx), toFields(keysAndValues)...)...)
}

// Named 子 logger 名称用 "." 连接，例如 manager.flush
func (l *ZapLogger) Named(name string) Logger {
	clone := *l
	clone.zl = l.zl.Named(name)
	return &clone
}

func (l *ZapLogger) WithFields(keysAndValues ...interface{}) Logger {
	fields := toFields(keysAndValues)
	if len(fields) == 0 {
		return l
	}
	clone := *l
	clone.zl = l.zl.With(fields...)
	return &clone
}

func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}

// toFields 把交替出现的 key/value 转为 zap.Field，也接受现成的 zap.Field；
// 非字符串 key 和落单的 key 被丢弃
func toFields(kv []interface{}) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(kv)/2+1)
	for i := 0; i < len(kv); i++ {
		if f, ok := kv[i].(zap.Field); ok {
			fields = append(fields, f)
			continue
		}
		key, ok := kv[i].(string)
		if !ok || i+1 >= len(kv) {
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
		i++
	}
	return fields
}
