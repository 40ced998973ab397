package redis

import (
	"errors"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// Config 一个地址为单机，多个地址为集群
type Config struct {
	Addrs    []string   `mapstructure:"addrs" validate:"min=1,dive,hostname_port"`
	Password string     `mapstructure:"password"`
	DB       int        `mapstructure:"db" validate:"gte=0,lte=15"`
	Pool     PoolConfig `mapstructure:"pool"`
}

type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Addrs: []string{"127.0.0.1:6379"},
		Pool: PoolConfig{
			MaxIdleConns:    8,
			MaxOpenConns:    32,
			ConnMaxIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolTimeout:     4 * time.Second,
		},
	}
}

func MergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}

func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	// 集群只有 0 号库
	if c.IsCluster() && c.DB != 0 {
		return errors.Join(ErrInvalidConfig, errors.New("db must be 0 in cluster mode"))
	}
	return nil
}

func (c *Config) IsCluster() bool { return len(c.Addrs) > 1 }
