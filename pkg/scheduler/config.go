package scheduler

import (
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// BackoffStrategy 重试退避策略
type BackoffStrategy string

const (
	// BackoffFixed 固定间隔
	BackoffFixed BackoffStrategy = "fixed"
	// BackoffExponential 指数退避
	BackoffExponential BackoffStrategy = "exponential"
)

// MiddlewareConfig 任务中间件开关
type MiddlewareConfig struct {
	Logging  bool `mapstructure:"logging" json:"logging" yaml:"logging"`
	Recovery bool `mapstructure:"recovery" json:"recovery" yaml:"recovery"`
}

// JobOptions 任务执行选项
type JobOptions struct {
	MaxRetries        int             `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
	BackoffStrategy   BackoffStrategy `mapstructure:"backoff_strategy" json:"backoff_strategy" yaml:"backoff_strategy"`
	InitialBackoff    time.Duration   `mapstructure:"initial_backoff" json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff        time.Duration   `mapstructure:"max_backoff" json:"max_backoff" yaml:"max_backoff"`
	BackoffMultiplier float64         `mapstructure:"backoff_multiplier" json:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// Config 调度器配置
type Config struct {
	// Timezone 时区，空表示本地时区
	Timezone string `mapstructure:"timezone" json:"timezone" yaml:"timezone"`
	// WithSeconds 是否启用秒级 cron 表达式
	WithSeconds bool `mapstructure:"with_seconds" json:"with_seconds" yaml:"with_seconds"`
	// SkipIfStillRunning 上一次未执行完时跳过本次触发
	SkipIfStillRunning bool `mapstructure:"skip_if_still_running" json:"skip_if_still_running" yaml:"skip_if_still_running"`

	Middleware        MiddlewareConfig `mapstructure:"middleware" json:"middleware" yaml:"middleware"`
	DefaultJobOptions JobOptions       `mapstructure:"default_job_options" json:"default_job_options" yaml:"default_job_options"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SkipIfStillRunning: true,
		Middleware: MiddlewareConfig{
			Logging:  true,
			Recovery: true,
		},
		DefaultJobOptions: JobOptions{
			MaxRetries:        0,
			BackoffStrategy:   BackoffExponential,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
	}
}

// mergeConfig 合并用户配置与默认配置
func mergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}

// JobOption 单个任务的选项
type JobOption func(*JobOptions)

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) JobOption {
	return func(o *JobOptions) { o.MaxRetries = n }
}

// WithNoRetry 禁用重试
func WithNoRetry() JobOption {
	return func(o *JobOptions) { o.MaxRetries = 0 }
}

// WithBackoffStrategy 设置退避策略
func WithBackoffStrategy(s BackoffStrategy) JobOption {
	return func(o *JobOptions) { o.BackoffStrategy = s }
}

// WithInitialBackoff 设置初始退避时间
func WithInitialBackoff(d time.Duration) JobOption {
	return func(o *JobOptions) { o.InitialBackoff = d }
}

// WithMaxBackoff 设置最大退避时间
func WithMaxBackoff(d time.Duration) JobOption {
	return func(o *JobOptions) { o.MaxBackoff = d }
}

// backoff 计算第 attempt 次重试前的等待时间（attempt 从 1 开始）
func (o *JobOptions) backoff(attempt int) time.Duration {
	d := o.InitialBackoff
	if o.BackoffStrategy == BackoffExponential {
		mult := o.BackoffMultiplier
		if mult <= 1 {
			mult = 2
		}
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * mult)
			if o.MaxBackoff > 0 && d >= o.MaxBackoff {
				return o.MaxBackoff
			}
		}
	}
	if o.MaxBackoff > 0 && d > o.MaxBackoff {
		return o.MaxBackoff
	}
	return d
}
