package prometheus

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	CounterVec   = prometheus.CounterVec
	GaugeVec     = prometheus.GaugeVec
	HistogramVec = prometheus.HistogramVec
)

var (
	ErrInvalidConfig = errors.New("prometheus: invalid config")
	ErrMetricExists  = errors.New("prometheus: metric already registered")
	ErrClientClosed  = errors.New("prometheus: client stopped")
)

// add 按名称登记并注册到 Registry；同名只允许一次，与类型无关
func add[T prometheus.Collector](c *Client, name string, metric T) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return zero, ErrClientClosed
	}
	if _, dup := c.metrics[name]; dup {
		return zero, fmt.Errorf("%w: %s", ErrMetricExists, name)
	}
	if err := c.registry.Register(metric); err != nil {
		return zero, fmt.Errorf("register %s: %w", name, err)
	}
	c.metrics[name] = metric
	return metric, nil
}

func must[T any](m T, err error) T {
	if err != nil {
		panic(err)
	}
	return m
}

func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	opts := prometheus.CounterOpts{Namespace: c.config.Namespace, Subsystem: c.config.Subsystem, Name: name, Help: help}
	return add(c, name, prometheus.NewCounterVec(opts, labels))
}

func (c *Client) MustNewCounter(name, help string, labels []string) *CounterVec {
	return must(c.NewCounter(name, help, labels))
}

// GetCounter 查找已登记的 Counter，同名但类型不同时返回 false
func (c *Client) GetCounter(name string) (*CounterVec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.metrics[name].(*CounterVec)
	return cv, ok
}

func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	opts := prometheus.GaugeOpts{Namespace: c.config.Namespace, Subsystem: c.config.Subsystem, Name: name, Help: help}
	return add(c, name, prometheus.NewGaugeVec(opts, labels))
}

func (c *Client) MustNewGauge(name, help string, labels []string) *GaugeVec {
	return must(c.NewGauge(name, help, labels))
}

// MustNewHistogram buckets 为空时使用 prometheus.DefBuckets
func (c *Client) MustNewHistogram(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	opts := prometheus.HistogramOpts{Namespace: c.config.Namespace, Subsystem: c.config.Subsystem, Name: name, Help: help, Buckets: buckets}
	return must(add(c, name, prometheus.NewHistogramVec(opts, labels)))
}
