package sentry

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

var (
	ErrInvalidConfig = errors.New("sentry: invalid config")
	ErrClientClosed  = errors.New("sentry: reporter closed")
)

// Config 为空 DSN 时不上报
type Config struct {
	DSN              string            `mapstructure:"dsn"`
	Environment      string            `mapstructure:"environment"`
	Release          string            `mapstructure:"release"`
	ServerName       string            `mapstructure:"server_name"`
	SampleRate       float64           `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	AttachStacktrace bool              `mapstructure:"attach_stacktrace"`
	MaxBreadcrumbs   int               `mapstructure:"max_breadcrumbs" validate:"gte=0"`
	FlushTimeout     time.Duration     `mapstructure:"shutdown_timeout"`
	Debug            bool              `mapstructure:"debug"`
	Tags             map[string]string `mapstructure:"tags"`
}

func DefaultConfig() *Config {
	return &Config{
		Environment:      "production",
		SampleRate:       1.0,
		AttachStacktrace: true,
		MaxBreadcrumbs:   100,
		FlushTimeout:     2 * time.Second,
	}
}

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

func (c *Config) clientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              c.DSN,
		Environment:      c.Environment,
		Release:          c.Release,
		ServerName:       c.ServerName,
		SampleRate:       c.SampleRate,
		AttachStacktrace: c.AttachStacktrace,
		MaxBreadcrumbs:   c.MaxBreadcrumbs,
		Debug:            c.Debug,
	}
}
