package sentry

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

const testDSN = "https://public@sentry.example.com/1"

type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

// capture 记录事件后丢弃，不产生网络请求
func (s *eventSink) capture(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *eventSink) all() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sentry.Event(nil), s.events...)
}

func TestDisabledWithoutDSN(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	c.Report(sentry.LevelError, "ignored", errors.New("ignored"), nil, nil)
	assert.Zero(t, c.Reported())
	assert.NoError(t, c.Close())
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(&Config{DSN: testDSN, SampleRate: 2})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoggerHookCapturesErrors(t *testing.T) {
	sink := &eventSink{}
	c, err := New(&Config{DSN: testDSN, Tags: map[string]string{"service": "toolsvc"}}, WithBeforeSend(sink.capture))
	require.NoError(t, err)
	require.True(t, c.Enabled())

	l, err := logger.New(&logger.Config{Level: logger.InfoLevel}, logger.WithHooks(LoggerHook(c, logger.ErrorLevel)))
	require.NoError(t, err)
	named := l.Named("manager.tool")

	named.Info("not reported")
	named.Error("failed to save owner", "owner_id", "alice", "attempt", 2)

	events := sink.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "failed to save owner", ev.Message)
	assert.Equal(t, sentry.LevelError, ev.Level)
	assert.Equal(t, "manager.tool", ev.Tags["logger"])
	assert.Equal(t, "toolsvc", ev.Tags["service"])
	assert.Equal(t, "alice", ev.Extra["owner_id"])

	named.Error("storage write failed", "error", errors.New("disk full"))
	events = sink.all()
	require.Len(t, events, 2)
	require.NotEmpty(t, events[1].Exception)
	assert.Equal(t, "disk full", events[1].Exception[0].Value)
	assert.Equal(t, "storage write failed", events[1].Extra["message"])

	assert.Equal(t, uint64(2), c.Reported())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
}
