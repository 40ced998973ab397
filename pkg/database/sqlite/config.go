package sqlite

import (
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// Config SQLite 配置
type Config struct {
	// Path 数据库文件路径
	Path string `mapstructure:"path"`
	// BusyTimeout 写锁等待时间
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	// Synchronous PRAGMA synchronous 取值（OFF/NORMAL/FULL）
	Synchronous string `mapstructure:"synchronous" validate:"omitempty,oneof=OFF NORMAL FULL"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Path:        "./playerdata/tools.db",
		BusyTimeout: 5 * time.Second,
		Synchronous: "NORMAL",
	}
}

// MergeConfig 合并默认配置
func MergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}
