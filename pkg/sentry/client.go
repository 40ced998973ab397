// Package sentry 把错误日志转成 Sentry 事件
package sentry

import (
	"fmt"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// Client 使用独立 Hub，不修改 sentry 全局状态
type Client struct {
	cfg    *Config
	hub    *sentry.Hub
	closed atomic.Bool
	sent   atomic.Uint64
}

type Option func(*sentry.ClientOptions)

// WithBeforeSend 返回 nil 的回调会丢弃事件
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) { o.BeforeSend = fn }
}

func New(cfg *Config, opts ...Option) (*Client, error) {
	resolved, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{cfg: resolved}
	if resolved.DSN == "" {
		return c, nil
	}

	co := resolved.clientOptions()
	for _, opt := range opts {
		opt(&co)
	}
	sc, err := sentry.NewClient(co)
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}

	scope := sentry.NewScope()
	scope.SetTags(resolved.Tags)
	c.hub = sentry.NewHub(sc, scope)
	return c, nil
}

// Enabled nil 接收者返回 false
func (c *Client) Enabled() bool {
	return c != nil && c.hub != nil && !c.closed.Load()
}

// Report 上报一条事件；cause 非空时作为异常附带
func (c *Client) Report(level sentry.Level, msg string, cause error, tags map[string]string, extra map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTags(tags)
		scope.SetExtras(extra)

		c.sent.Add(1)
		if cause != nil {
			scope.SetExtra("message", msg)
			c.hub.CaptureException(cause)
			return
		}
		c.hub.CaptureMessage(msg)
	})
}

// Reported 已提交给 SDK 的事件数，包含被 BeforeSend 丢弃的
func (c *Client) Reported() uint64 { return c.sent.Load() }

// Close 等待 FlushTimeout 后返回
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	if c.hub != nil {
		c.hub.Flush(c.cfg.FlushTimeout)
	}
	return nil
}
