package main

import (
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/economy"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/manager"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/metrics"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/service"
	"github.com/ImOpaque/GensTools-sub000/pkg/app"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/postgres"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/idgen"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/prometheus"
	"github.com/ImOpaque/GensTools-sub000/pkg/sentry"
	"github.com/ImOpaque/GensTools-sub000/pkg/web"
)

// RedisConfig Redis 连接，Enabled 为 false 时不建立连接
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// HotReloadConfig 配置文件与配置表热加载
type HotReloadConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config 定义工具服务的完整配置结构
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// 错误上报，DSN 为空时不启用
	Sentry sentry.Config `mapstructure:"sentry"`

	// 工具运行期参数（热加载）
	Tools service.Config `mapstructure:"tools"`

	// 热加载开关
	HotReload HotReloadConfig `mapstructure:"hot_reload"`

	// 缓存与同步
	Manager manager.Config `mapstructure:"manager"`

	// uniqueId 生成
	IDGen idgen.Config `mapstructure:"idgen"`

	// 持久化后端
	Storage dao.Config `mapstructure:"storage"`

	// PostgreSQL 配置（storage.driver=postgres 时使用）
	Database postgres.Config `mapstructure:"database"`

	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`

	// 余额后端
	Economy economy.Config `mapstructure:"economy"`

	// 管理接口
	Web web.Config `mapstructure:"web"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// 指标配置
	Metrics metrics.Config `mapstructure:"metrics"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	// 2. 错误上报
	sentryClient, err := sentry.New(&cfg.Sentry)
	if err != nil {
		panic(err)
	}

	// 3. 初始化主日志，Error 及以上同时上报 Sentry
	l, err := logger.New(&cfg.Log, logger.WithHooks(sentry.LoggerHook(sentryClient, logger.ErrorLevel)))
	if err != nil {
		panic(err)
	}

	// 4. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l, sentryClient)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		_ = sentryClient.Close()
		return
	}
	defer cleanup()

	// 5. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
