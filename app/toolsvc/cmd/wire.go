//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/handler"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/service"
	"github.com/ImOpaque/GensTools-sub000/pkg/app"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/sentry"
)

func InitApp(cfg *Config, l logger.Logger, sentryClient *sentry.Client) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,

		// 2. Prometheus 客户端与指标
		providePrometheus,
		provideToolMetrics,
		provideHTTPMetrics,

		// 3. 外部连接（按需创建）
		providePostgres,
		provideRedis,

		// 4. 数据层 (DAO)
		provideStorage,

		// 5. 配置表与物品属性
		provideToolsConfig,
		provideCatalog,
		provideAttributeStore,
		provideIDGenerator,

		// 6. 管理层 (Manager)
		provideManager,

		// 7. 服务层 (Service)
		provideEconomy,
		provideToolService,
		wire.Bind(new(handler.ToolAdmin), new(*service.ToolService)),

		// 8. 接口层 (Handler)
		handler.NewAdminHandler,
		provideWebServer,

		// 9. 热加载
		provideReloader,

		// 10. 组装与应用配置
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}
