package service

import (
	"time"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/cost"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/ledger"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/progression"
	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// Config 工具服务运行期参数（配置文件 tools 节），Reload 时整体替换
type Config struct {
	// Namespace 物品属性键命名空间，只在启动时生效
	Namespace          string             `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	MaxEnchantLevel    int                `mapstructure:"max_enchant_level" json:"max_enchant_level" yaml:"max_enchant_level" validate:"omitempty,gte=1"`
	CubeRecoveryChance float64            `mapstructure:"cube_recovery_chance" json:"cube_recovery_chance" yaml:"cube_recovery_chance" validate:"gte=0,lte=1"`
	RefundRate         float64            `mapstructure:"refund_rate" json:"refund_rate" yaml:"refund_rate" validate:"gte=0,lte=1"`
	CostMultiplier     float64            `mapstructure:"cost_multiplier" json:"cost_multiplier" yaml:"cost_multiplier" validate:"gte=0"`
	Progression        progression.Config `mapstructure:"progression" json:"progression" yaml:"progression"`
	CatalogDir         string             `mapstructure:"catalog_dir" json:"catalog_dir" yaml:"catalog_dir"`
	// ShutdownTimeout 关闭时最终刷盘的超时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:          "gens",
		MaxEnchantLevel:    1000,
		CubeRecoveryChance: 0.5,
		RefundRate:         0.75,
		CostMultiplier:     1.15,
		Progression:        *progression.DefaultConfig(),
		CatalogDir:         "./data",
		ShutdownTimeout:    30 * time.Second,
	}
}

// MergeConfig 合并默认值，零值字段不覆盖默认值
func MergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}

// LedgerConfig 账本参数
func (c *Config) LedgerConfig() *ledger.Config {
	return &ledger.Config{
		MaxLevel:           c.MaxEnchantLevel,
		CubeRecoveryChance: c.CubeRecoveryChance,
	}
}

// CostConfig 价格参数
func (c *Config) CostConfig() *cost.Config {
	return &cost.Config{
		CostMultiplier: c.CostMultiplier,
		RefundRate:     c.RefundRate,
	}
}
