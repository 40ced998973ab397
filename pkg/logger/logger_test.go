package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T, opts ...Option) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	l, err := New(&Config{Level: DebugLevel}, append(opts, WithCore(core))...)
	require.NoError(t, err)
	return l, logs
}

// TestNew 测试创建 Logger
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config uses default", config: nil},
		{name: "valid minimal config", config: &Config{Level: InfoLevel, Format: JSONFormat}},
		{name: "file enabled without path", config: &Config{File: FileConfig{Enabled: true}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOutputPath)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestKeyValueFields(t *testing.T) {
	l, logs := newObserved(t)

	l.Info("tool registered", "owner_id", "p1", "unique_id", "42", "dangling")
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, "tool registered", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "p1", ctx["owner_id"])
	assert.Equal(t, "42", ctx["unique_id"])
	assert.NotContains(t, ctx, "dangling")
}

func TestNamedAndWithFields(t *testing.T) {
	l, logs := newObserved(t)

	named := l.Named("manager").Named("tool").WithFields("shard", 3)
	named.Warn("flush failed", "error", errors.New("disk full"))

	entry := logs.All()[0]
	assert.Equal(t, "manager.tool", entry.LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.EqualValues(t, 3, entry.ContextMap()["shard"])
	assert.Equal(t, "disk full", entry.ContextMap()["error"])
}

func TestContextExtractor(t *testing.T) {
	l, logs := newObserved(t)

	ctx := WithRequestID(WithOwner(context.Background(), "owner-7"), "req-1")
	l.ErrorContext(ctx, "storage write failed")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "owner-7", fields["owner_id"])
	assert.Equal(t, "req-1", fields["request_id"])

	owner, ok := OwnerFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "owner-7", owner)
}

func TestLevelHook(t *testing.T) {
	var captured []string
	hook := LevelHook(ErrorLevel, func(entry zapcore.Entry, _ []zapcore.Field) {
		captured = append(captured, entry.Message)
	})
	l, logs := newObserved(t, WithHooks(hook))

	l.Warn("decode dropped tokens")
	l.Error("storage write failed")

	assert.Equal(t, []string{"storage write failed"}, captured)
	assert.Equal(t, 2, logs.Len())
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoop()
	assert.Same(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestFixedFieldsAndStacktrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l, err := New(&Config{
		Level:           DebugLevel,
		StacktraceLevel: ErrorLevel,
		Fields:          map[string]string{"service": "toolsvc", "instance": "a"},
	}, WithCore(core))
	require.NoError(t, err)

	l.Info("loaded")
	l.Error("flush failed")

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "toolsvc", all[0].ContextMap()["service"])
	assert.Equal(t, "a", all[0].ContextMap()["instance"])
	assert.Empty(t, all[0].Stack)
	assert.NotEmpty(t, all[1].Stack)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolsvc.log")
	l, err := New(&Config{
		Format: JSONFormat,
		File:   FileConfig{Enabled: true, Path: path},
	})
	require.NoError(t, err)

	l.Info("tool registered", "unique_id", "42")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"tool registered"`)
	assert.Contains(t, string(data), `"unique_id":"42"`)
}
