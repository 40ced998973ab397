// Package sliding 固定窗口内的操作计数与延迟统计
//
// 窗口被切成 BucketCount 个等宽时间片，每个槽位记住自己所属的时间片序号；
// 写入时遇到旧序号直接清零复用，读取时跳过窗口外的槽位，不需要后台轮转。
package sliding

import (
	"fmt"
	"sync"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

type WindowConfig struct {
	WindowSize  time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	BucketCount int           `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count" validate:"omitempty,min=1"`
}

func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{WindowSize: time.Minute, BucketCount: 60}
}

// tally 单个槽位或整个窗口的累计值，min 为 -1 表示尚无样本
type tally struct {
	ok, failed int64
	sum        time.Duration
	min, max   time.Duration
}

func (t *tally) observe(d time.Duration, success bool) {
	if success {
		t.ok++
	} else {
		t.failed++
	}
	t.sum += d
	if t.min < 0 || d < t.min {
		t.min = d
	}
	t.max = max(t.max, d)
}

func (t *tally) merge(o *tally) {
	t.ok += o.ok
	t.failed += o.failed
	t.sum += o.sum
	if o.min >= 0 && (t.min < 0 || o.min < t.min) {
		t.min = o.min
	}
	t.max = max(t.max, o.max)
}

type slot struct {
	tick int64
	tally
}

type Window struct {
	size  time.Duration
	width time.Duration
	now   func() time.Time

	mu    sync.Mutex
	slots []slot
}

type Option func(*Window)

func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

func NewWindow(cfg *WindowConfig, opts ...Option) (*Window, error) {
	c, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, err
	}
	width := c.WindowSize / time.Duration(c.BucketCount)
	if width <= 0 {
		return nil, fmt.Errorf("sliding: %s cannot be split into %d buckets", c.WindowSize, c.BucketCount)
	}

	w := &Window{size: c.WindowSize, width: width, now: time.Now, slots: make([]slot, c.BucketCount)}
	for i := range w.slots {
		w.slots[i].tick = -1
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Window) tick() int64 {
	return w.now().UnixNano() / int64(w.width)
}

// Record 记录一次操作的耗时与结果
func (w *Window) Record(latency time.Duration, success bool) {
	tick := w.tick()

	w.mu.Lock()
	defer w.mu.Unlock()

	s := &w.slots[tick%int64(len(w.slots))]
	if s.tick != tick {
		*s = slot{tick: tick, tally: tally{min: -1}}
	}
	s.observe(latency, success)
}

// Stats Rate 为每秒次数，SuccessRate 取值 0-100
type Stats struct {
	Rate         float64       `json:"rate"`
	AvgLatency   time.Duration `json:"avg_latency"`
	MinLatency   time.Duration `json:"min_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
	SuccessRate  float64       `json:"success_rate"`
	TotalCount   int64         `json:"total_count"`
	SuccessCount int64         `json:"success_count"`
	FailureCount int64         `json:"failure_count"`
}

func (w *Window) GetStats() Stats {
	newest := w.tick()
	oldest := newest - int64(len(w.slots)) + 1

	sum := tally{min: -1}
	w.mu.Lock()
	for i := range w.slots {
		if s := &w.slots[i]; s.tick >= oldest && s.tick <= newest {
			sum.merge(&s.tally)
		}
	}
	w.mu.Unlock()

	total := sum.ok + sum.failed
	st := Stats{
		Rate:         float64(total) / w.size.Seconds(),
		MaxLatency:   sum.max,
		TotalCount:   total,
		SuccessCount: sum.ok,
		FailureCount: sum.failed,
	}
	if total > 0 {
		st.AvgLatency = sum.sum / time.Duration(total)
		st.SuccessRate = float64(sum.ok) * 100 / float64(total)
		st.MinLatency = sum.min
	}
	return st
}
