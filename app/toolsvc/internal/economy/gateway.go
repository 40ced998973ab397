// Package economy 货币余额端口
package economy

import (
	"context"
	"fmt"
	"math"

	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
)

// Driver 余额后端
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Config 余额后端配置
type Config struct {
	Driver    Driver `mapstructure:"driver" validate:"omitempty,oneof=memory redis"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultConfig 默认使用内存余额
func DefaultConfig() *Config {
	return &Config{
		Driver:    DriverMemory,
		KeyPrefix: "economy:",
	}
}

// Gateway 余额读写端口
//
// Debit 余额不足时返回 (false, nil)，只有后端故障才返回错误。
type Gateway interface {
	Balance(ctx context.Context, owner, currency string) (float64, error)
	Credit(ctx context.Context, owner, currency string, amount float64) error
	Debit(ctx context.Context, owner, currency string, amount float64) (bool, error)
}

// NewGateway 按配置创建余额端口，redis 驱动需要 client
func NewGateway(cfg *Config, client *redis.Client) (Gateway, error) {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = def.KeyPrefix
	}
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryGateway(), nil
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("economy driver %q requires a redis client", cfg.Driver)
		}
		return NewRedisGateway(client, prefix), nil
	default:
		return nil, fmt.Errorf("unsupported economy driver: %s", cfg.Driver)
	}
}

func validAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("invalid amount %v", amount)
	}
	return nil
}
