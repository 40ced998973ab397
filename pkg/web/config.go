package web

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
	"github.com/ImOpaque/GensTools-sub000/pkg/web/middleware"
)

// Config 管理接口 HTTP 服务
type Config struct {
	Port            int           `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// 证书与私钥同时配置时启用 HTTPS
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	CORS      middleware.CORSConfig      `mapstructure:"cors"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`
}

// DefaultConfig 默认监听 8080，不限流
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		RateLimit: middleware.RateLimitConfig{
			Burst:      20,
			MaxClients: 1024,
			IdleTTL:    10 * time.Minute,
		},
	}
}

// TLS 是否启用 HTTPS
func (c *Config) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// MergeConfig 叠加默认值
func MergeConfig(cfg *Config) (*Config, error) {
	return config.MergeConfig(DefaultConfig(), cfg)
}
