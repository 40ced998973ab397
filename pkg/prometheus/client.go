package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/util/conc"
)

// Client 独立 Registry 上的指标登记处，实现 app.Server
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	mu      sync.Mutex
	metrics map[string]prometheus.Collector
	stopped bool
	server  *http.Server
}

func New(cfg *Config, l logger.Logger) (*Client, error) {
	resolved, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	reg := prometheus.NewRegistry()
	if resolved.GoCollector {
		reg.MustRegister(collectors.NewGoCollector())
	}
	if resolved.ProcessCollector {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return &Client{
		config:   resolved,
		registry: reg,
		logger:   l.Named("prometheus"),
		metrics:  make(map[string]prometheus.Collector),
	}, nil
}

func (c *Client) Registry() *prometheus.Registry { return c.registry }

func (c *Client) Config() *Config { return c.config }

// Handler 输出 OpenMetrics 格式
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start HTTPServer 未启用时什么都不做
func (c *Client) Start() error {
	hs := c.config.HTTPServer
	if !hs.Enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrClientClosed
	}

	mux := http.NewServeMux()
	mux.Handle(hs.Path, c.Handler())
	srv := &http.Server{Addr: hs.Addr, Handler: mux, ReadTimeout: hs.Timeout, WriteTimeout: hs.Timeout}
	c.server = srv

	conc.Go(func() (struct{}, error) {
		c.logger.Info("metrics endpoint up", "addr", hs.Addr, "path", hs.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics endpoint exited", "error", err)
		}
		return struct{}{}, nil
	})
	return nil
}

// Stop 之后不能再登记指标；重复调用返回 ErrClientClosed
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrClientClosed
	}
	c.stopped = true
	srv := c.server
	c.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.HTTPServer.Timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
