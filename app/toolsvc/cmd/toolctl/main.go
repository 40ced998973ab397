// toolctl 工具存储运维命令行，直接操作配置的持久化后端
//
// 与 toolsvc 共用同一份配置文件；运行中的服务仍持有缓存，
// 对在线玩家的修改会在下一次刷盘时被覆盖。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/dao"
	"github.com/ImOpaque/GensTools-sub000/pkg/app"
	"github.com/ImOpaque/GensTools-sub000/pkg/config"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/postgres"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// RedisConfig 与 toolsvc 的 redis 节一致
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// Config toolctl 只读取存储相关的配置节
type Config struct {
	Storage  dao.Config      `mapstructure:"storage"`
	Database postgres.Config `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
}

var (
	flagConfig  string
	flagVerbose bool

	cfg Config
	log logger.Logger = logger.NewNoop()
)

var rootCmd = &cobra.Command{
	Use:           "toolctl",
	Short:         "Inspect and maintain persisted tool collections",
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			l, err := logger.New(&logger.Config{
				Level:   logger.DebugLevel,
				Format:  logger.ConsoleFormat,
				Console: true,
			})
			if err != nil {
				return err
			}
			log = l
		}
		return loadConfig(flagConfig, &cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "path to toolsvc config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log storage activity to stderr")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig 读取配置文件，TOOLSVC_ 前缀的环境变量同样生效
func loadConfig(path string, target *Config) error {
	mgr := config.NewManager()
	if err := mgr.LoadFile(path); err != nil {
		return err
	}
	mgr.BindEnv(app.EnvPrefix)
	if err := mgr.Unmarshal(target); err != nil {
		return err
	}
	return config.NewValidator().Validate(target)
}

// openStorage 按存储配置建立连接，返回的 closer 负责关闭存储和连接
func openStorage(c *Config, storageCfg *dao.Config) (dao.Storage, func(), error) {
	var (
		backends dao.Backends
		closers  []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch storageCfg.Driver {
	case dao.DriverPostgres:
		pg, err := postgres.New(&c.Database)
		if err != nil {
			return nil, nil, err
		}
		backends.Postgres = pg
		closers = append(closers, pg.Close)
	case dao.DriverRedis:
		rc, err := redis.NewClient(&c.Redis.Config)
		if err != nil {
			return nil, nil, err
		}
		backends.Redis = rc
		closers = append(closers, func() { _ = rc.Close() })
	}

	s, err := dao.NewStorage(storageCfg, backends, log, nil)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := s.Close(); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
	})
	return s, closeAll, nil
}
