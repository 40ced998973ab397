package metrics

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/config"
	"github.com/ImOpaque/GensTools-sub000/pkg/metrics/sliding"
	"github.com/ImOpaque/GensTools-sub000/pkg/prometheus"
)

// Config 指标配置
type Config struct {
	// SlidingWindow 刷盘统计滑动窗口
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SlidingWindow: *sliding.DefaultWindowConfig(),
	}
}

// 结果标签
const (
	ResultOK         = "ok"
	ResultValidation = "validation"
	ResultEconomy    = "economy"
	ResultStorage    = "storage"
	ResultError      = "error"
)

// ToolMetrics 工具服务指标
//
// 所有方法允许在 nil 接收者上调用。
type ToolMetrics struct {
	config *Config

	// 缓存指标
	CachedOwners *prometheus.GaugeVec   // 当前缓存的玩家数
	DirtyOwners  *prometheus.GaugeVec   // 待刷盘玩家数
	CacheTotal   *prometheus.CounterVec // 缓存访问（按 hit/miss）
	Evictions    *prometheus.CounterVec // 淘汰（按结果）

	// 刷盘指标
	FlushTotal    *prometheus.CounterVec   // 刷盘次数（按触发方式、结果）
	FlushDuration *prometheus.HistogramVec // 刷盘耗时

	// 存储指标
	StorageOpsTotal    *prometheus.CounterVec   // 存储操作（按后端、操作、结果）
	StorageOpsDuration *prometheus.HistogramVec // 存储操作耗时

	// 业务指标
	OperationsTotal   *prometheus.CounterVec // 服务操作（按操作、结果）
	DuplicateUniqueID *prometheus.CounterVec // 重复 uniqueId
	Divergences       *prometheus.CounterVec // 倍率冗余字段不一致
	DecodeWarnings    *prometheus.CounterVec // 编码字段解析告警

	// 滑动窗口统计（/stats 展示）
	flushWindow *sliding.Window
}

// New 创建工具服务指标并注册到 client
func New(cfg *Config, client *prometheus.Client) (m *ToolMetrics, err error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}

	window, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create sliding window: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("failed to register tool metrics: %v", r)
		}
	}()

	latency := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}
	m = &ToolMetrics{
		config: newCfg,

		CachedOwners: client.MustNewGauge("cached_owners", "当前缓存的玩家数", nil),
		DirtyOwners:  client.MustNewGauge("dirty_owners", "待刷盘玩家数", nil),
		CacheTotal:   client.MustNewCounter("cache_access_total", "缓存访问总数", []string{"result"}),
		Evictions:    client.MustNewCounter("evictions_total", "缓存淘汰总数", []string{"result"}),

		FlushTotal:    client.MustNewCounter("flush_total", "刷盘总数", []string{"trigger", "result"}),
		FlushDuration: client.MustNewHistogram("flush_duration_seconds", "刷盘耗时（秒）", []string{"trigger"}, latency),

		StorageOpsTotal:    client.MustNewCounter("storage_ops_total", "存储操作总数", []string{"backend", "op", "result"}),
		StorageOpsDuration: client.MustNewHistogram("storage_op_duration_seconds", "存储操作耗时（秒）", []string{"backend", "op"}, latency),

		OperationsTotal:   client.MustNewCounter("operations_total", "服务操作总数", []string{"op", "result"}),
		DuplicateUniqueID: client.MustNewCounter("duplicate_unique_ids_total", "同一批次中重复的 uniqueId", nil),
		Divergences:       client.MustNewCounter("attribute_divergence_total", "applied_cubes 与倍率字段不一致次数", nil),
		DecodeWarnings:    client.MustNewCounter("decode_warnings_total", "编码字段解析告警", []string{"field"}),

		flushWindow: window,
	}
	return m, nil
}

// Result 将错误归类为结果标签
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, model.ErrValidation):
		return ResultValidation
	case errors.Is(err, model.ErrEconomy):
		return ResultEconomy
	case errors.Is(err, model.ErrStorage):
		return ResultStorage
	default:
		return ResultError
	}
}

func boolResult(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultError
}

// SetCachedOwners 设置缓存玩家数
func (m *ToolMetrics) SetCachedOwners(n int) {
	if m == nil {
		return
	}
	m.CachedOwners.WithLabelValues().Set(float64(n))
}

// SetDirtyOwners 设置待刷盘玩家数
func (m *ToolMetrics) SetDirtyOwners(n int) {
	if m == nil {
		return
	}
	m.DirtyOwners.WithLabelValues().Set(float64(n))
}

// RecordCache 记录缓存命中
func (m *ToolMetrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheTotal.WithLabelValues(result).Inc()
}

// RecordEviction 记录淘汰结果
func (m *ToolMetrics) RecordEviction(success bool) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(boolResult(success)).Inc()
}

// RecordFlush 记录一次刷盘
func (m *ToolMetrics) RecordFlush(trigger string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.FlushTotal.WithLabelValues(trigger, boolResult(success)).Inc()
	m.FlushDuration.WithLabelValues(trigger).Observe(d.Seconds())
	m.flushWindow.Record(d, success)
}

// RecordStorageOp 记录一次存储操作
func (m *ToolMetrics) RecordStorageOp(backend, op string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.StorageOpsTotal.WithLabelValues(backend, op, boolResult(success)).Inc()
	m.StorageOpsDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

// RecordOperation 记录服务操作结果
func (m *ToolMetrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, Result(err)).Inc()
}

// RecordDuplicate 记录重复 uniqueId
func (m *ToolMetrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.DuplicateUniqueID.WithLabelValues().Inc()
}

// RecordDivergence 记录倍率字段不一致
func (m *ToolMetrics) RecordDivergence(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Divergences.WithLabelValues().Add(float64(n))
}

// RecordDecodeWarning 记录编码字段解析告警
func (m *ToolMetrics) RecordDecodeWarning(field string) {
	if m == nil {
		return
	}
	m.DecodeWarnings.WithLabelValues(field).Inc()
}

// FlushStats 最近窗口内的刷盘统计
func (m *ToolMetrics) FlushStats() sliding.Stats {
	if m == nil {
		return sliding.Stats{}
	}
	return m.flushWindow.GetStats()
}
