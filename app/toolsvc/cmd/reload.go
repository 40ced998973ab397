package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/service"
	"github.com/ImOpaque/GensTools-sub000/pkg/app"
	"github.com/ImOpaque/GensTools-sub000/pkg/config"
	"github.com/ImOpaque/GensTools-sub000/pkg/gameconfig"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

const reloadTimeout = 30 * time.Second

// loadToolsConfig 只读取配置文件的 tools 节，环境变量覆盖同样生效
func loadToolsConfig(path string) (*service.Config, error) {
	mgr := config.NewManager()
	if err := mgr.LoadFile(path); err != nil {
		return nil, err
	}
	mgr.BindEnv(app.EnvPrefix)

	var cfg service.Config
	if err := mgr.UnmarshalKey("tools", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tools config: %w", err)
	}
	if err := config.NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// reloader 监听配置文件和配置表，变更后触发 ToolService 重新加载
type reloader struct {
	svc      *service.ToolService
	logger   logger.Logger
	stoppers []func()
}

func newReloader(configPath, catalogDir string, svc *service.ToolService, l logger.Logger) (*reloader, error) {
	r := &reloader{
		svc:    svc,
		logger: l.Named("reloader"),
	}

	// 1. 配置文件 tools 节
	cw, err := config.NewWatcher[service.Config](configPath, loadToolsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	cw.OnChange(func(cfg *service.Config) {
		r.apply("config", func(ctx context.Context) error { return svc.ReloadWith(ctx, cfg) })
	})
	cw.OnError(r.onError("config"))
	r.stoppers = append(r.stoppers, cw.Stop)

	// 2. 配置表
	if err := watchTable[catalog.Enchantment](r, catalogDir, catalog.TableEnchantments); err != nil {
		r.Close()
		return nil, err
	}
	if err := watchTable[catalog.ToolType](r, catalogDir, catalog.TableToolTypes); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Info("hot reload enabled", "config", configPath, "catalog_dir", catalogDir)
	return r, nil
}

// watchTable 表文件变更并能完整解析后才触发重新加载
func watchTable[T any](r *reloader, dir, table string) error {
	w, err := config.NewWatcher[[]T](gameconfig.TablePath(dir, table), func(path string) (*[]T, error) {
		rows, err := gameconfig.LoadTable[T](filepath.Dir(path), table, r.logger)
		if err != nil {
			return nil, err
		}
		return &rows, nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch table %s: %w", table, err)
	}
	w.OnChange(func(*[]T) {
		r.apply(table, r.svc.Reload)
	})
	w.OnError(r.onError(table))
	r.stoppers = append(r.stoppers, w.Stop)
	return nil
}

func (r *reloader) apply(source string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.logger.Error("hot reload failed", "source", source, "error", err)
		return
	}
	r.logger.Info("hot reload applied", "source", source)
}

func (r *reloader) onError(source string) func(error) {
	return func(err error) {
		r.logger.Warn("changed file rejected, keeping previous version", "source", source, "error", err)
	}
}

// Close 停止全部监听
func (r *reloader) Close() error {
	for _, stop := range r.stoppers {
		stop()
	}
	r.stoppers = nil
	return nil
}
