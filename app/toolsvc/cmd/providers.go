package main

import (
	"github.com/gin-gonic/gin"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/economy"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/handler"
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
	webmetrics "github.com/ImOpaque/GensTools-sub000/pkg/web/metrics"
)

// providePrometheus 提供 Prometheus 客户端
func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, error) {
	return prometheus.New(&cfg.Prometheus, l)
}

// provideToolMetrics 提供工具服务指标
func provideToolMetrics(cfg *Config, client *prometheus.Client) (*metrics.ToolMetrics, error) {
	return metrics.New(&cfg.Metrics, client)
}

// provideHTTPMetrics 提供管理接口的 HTTP 指标
func provideHTTPMetrics(client *prometheus.Client) *webmetrics.HTTP {
	return webmetrics.New(client.Config().Namespace, client.Registry())
}

// providePostgres 仅在 postgres 存储后端时建立连接
func providePostgres(cfg *Config) (*postgres.Client, error) {
	if cfg.Storage.Driver != dao.DriverPostgres {
		return nil, nil
	}
	return postgres.New(&cfg.Database)
}

// provideRedis 在 redis.enabled 或任一组件使用 redis 驱动时建立连接
func provideRedis(cfg *Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled && cfg.Storage.Driver != dao.DriverRedis && cfg.Economy.Driver != economy.DriverRedis {
		return nil, nil
	}
	return redis.NewClient(&cfg.Redis.Config)
}

// provideStorage 提供持久化后端
func provideStorage(cfg *Config, pg *postgres.Client, rc *redis.Client, l logger.Logger, m *metrics.ToolMetrics) (dao.Storage, error) {
	return dao.NewStorage(&cfg.Storage, dao.Backends{Postgres: pg, Redis: rc}, l, m)
}

// provideToolsConfig 提供合并默认值后的工具参数
func provideToolsConfig(cfg *Config) (*service.Config, error) {
	return service.MergeConfig(&cfg.Tools)
}

// provideCatalog 加载配置表
func provideCatalog(toolsCfg *service.Config, l logger.Logger) (*catalog.Catalog, error) {
	return catalog.Load(toolsCfg.CatalogDir, l)
}

// provideAttributeStore 提供物品属性读写
func provideAttributeStore(toolsCfg *service.Config) *attribute.Store {
	return attribute.NewStore(toolsCfg.Namespace)
}

// provideIDGenerator 提供 uniqueId 生成器
func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	return idgen.New(&cfg.IDGen)
}

// provideManager 提供缓存协调器，有 redis 时备份多实例互斥
func provideManager(
	cfg *Config,
	storage dao.Storage,
	store *attribute.Store,
	ids idgen.Generator,
	l logger.Logger,
	m *metrics.ToolMetrics,
	rc *redis.Client,
) (*manager.ToolManager, error) {
	mcfg := cfg.Manager
	if mcfg.BackupCron == "" {
		mcfg.BackupCron = cfg.Storage.BackupCron
	}
	var opts []manager.Option
	if rc != nil {
		opts = append(opts, manager.WithLocker(rc))
	}
	return manager.New(&mcfg, storage, store, ids, l, m, opts...)
}

// provideEconomy 提供余额端口
func provideEconomy(cfg *Config, rc *redis.Client) (economy.Gateway, error) {
	return economy.NewGateway(&cfg.Economy, rc)
}

// provideToolService 提供工具服务，Reload 时从配置文件重新读取 tools 节
func provideToolService(
	toolsCfg *service.Config,
	cat *catalog.Catalog,
	gw economy.Gateway,
	mgr *manager.ToolManager,
	store *attribute.Store,
	m *metrics.ToolMetrics,
	l logger.Logger,
) (*service.ToolService, error) {
	loader := func() (*service.Config, error) {
		return loadToolsConfig(app.GetConfigPath())
	}
	return service.NewToolService(toolsCfg, service.Deps{
		Catalog: cat,
		Economy: gw,
		Manager: mgr,
		Store:   store,
		Metrics: m,
	}, l, loader)
}

// provideWebServer 提供管理接口服务并注册路由
func provideWebServer(cfg *Config, l logger.Logger, hm *webmetrics.HTTP, h *handler.AdminHandler, promClient *prometheus.Client) (*web.Server, error) {
	s, err := web.NewServer(&cfg.Web, l, web.WithMetrics(hm))
	if err != nil {
		return nil, err
	}
	h.Register(s.Router())
	if !promClient.Config().HTTPServer.Enabled {
		s.Router().GET(promClient.Config().HTTPServer.Path, gin.WrapH(promClient.Handler()))
	}
	return s, nil
}

// provideReloader 提供热加载监听
func provideReloader(cfg *Config, toolsCfg *service.Config, svc *service.ToolService, l logger.Logger) (*reloader, error) {
	if !cfg.HotReload.Enabled {
		return nil, nil
	}
	return newReloader(app.GetConfigPath(), toolsCfg.CatalogDir, svc, l)
}

// provideAppOptions 提供应用选项
func provideAppOptions(toolsCfg *service.Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		// 停止超时需要覆盖关闭时的最终刷盘
		app.WithStopTimeout(toolsCfg.ShutdownTimeout),
	}
}

// provideAppComponents 提供应用组件
//
// Closer 按 LIFO 关闭：先停热加载，再由服务层执行最终刷盘，最后关闭存储与连接。
func provideAppComponents(
	promClient *prometheus.Client,
	sentryClient *sentry.Client,
	pg *postgres.Client,
	rc *redis.Client,
	storage dao.Storage,
	mgr *manager.ToolManager,
	svc *service.ToolService,
	webServer *web.Server,
	rl *reloader,
) app.AppComponents {
	closers := []app.Closer{sentryClient}
	if rc != nil {
		closers = append(closers, rc)
	}
	if pg != nil {
		closers = append(closers, app.MapCloser(pg))
	}
	closers = append(closers, storage, mgr, svc)
	if rl != nil {
		closers = append(closers, rl)
	}

	return app.AppComponents{
		Servers: []app.Server{
			promClient,
			mgr,
			webServer,
		},
		Closers: closers,
	}
}
