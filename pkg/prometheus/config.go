package prometheus

import (
	"errors"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// Config 指标配置
type Config struct {
	Namespace string `mapstructure:"namespace" validate:"required"`
	Subsystem string `mapstructure:"subsystem"`

	// 为 false 时由 web 服务挂载 Handler
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`

	GoCollector      bool `mapstructure:"enable_go_collector"`
	ProcessCollector bool `mapstructure:"enable_process_collector"`
}

type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string        `mapstructure:"path" validate:"required_if=Enabled true"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Namespace:        "toolsvc",
		GoCollector:      true,
		ProcessCollector: true,
		HTTPServer: HTTPServerConfig{
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
	}
}

// resolve 合并默认值并校验
func resolve(cfg *Config) (*Config, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().Validate(merged); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return merged, nil
}
