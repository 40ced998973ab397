package idgen

import (
	"github.com/cockroachdb/errors"
)

// Strategy 生成策略
type Strategy string

const (
	// StrategySonyflake 时间有序的 63 位整数，十进制字符串
	StrategySonyflake Strategy = "sonyflake"
	// StrategyUUID 随机 UUIDv4
	StrategyUUID Strategy = "uuid"
)

// Config 生成器配置
type Config struct {
	Strategy  Strategy `mapstructure:"strategy" validate:"omitempty,oneof=sonyflake uuid"`
	MachineID uint16   `mapstructure:"machine_id"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Strategy:  StrategySonyflake,
		MachineID: 1,
	}
}

// Generator 唯一 ID 生成器，返回值全局唯一且不为空
type Generator interface {
	NextID() (string, error)
}

// New 根据配置创建生成器
func New(cfg *Config) (Generator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Strategy {
	case StrategyUUID:
		return NewUUID(), nil
	case StrategySonyflake, "":
		return NewSonyflake(cfg.MachineID)
	default:
		return nil, errors.Newf("unknown id strategy %q", cfg.Strategy)
	}
}
