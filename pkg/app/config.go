package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ImOpaque/GensTools-sub000/pkg/config"
)

// EnvPrefix TOOLSVC_STORAGE_DRIVER 对应 storage.driver
const EnvPrefix = "TOOLSVC"

var (
	configFlag = pflag.StringP("config", "c", "", "config file (default: config.yaml next to the binary)")
	logFlag    = pflag.String("log.path", "", "enable file logging at this path")

	resolvedConfig string
)

// LoadConfig 解析命令行后加载配置到 target 并校验
//
// 配置文件：--config > TOOLSVC_CONFIG > 可执行文件旁的 config.yaml。
// 键值：--log.path > 环境变量 > 配置文件 > opts 中的默认值。
func LoadConfig(target any, opts ...config.Option) error {
	if !pflag.Parsed() {
		pflag.Parse()
	}

	dir := binaryDir()
	path, err := locateConfig(dir)
	if err != nil {
		return err
	}
	resolvedConfig = path

	opts = append([]config.Option{config.WithDefaults(map[string]any{
		"log.file.path": filepath.Join(dir, "logs", "toolsvc.log"),
	})}, opts...)
	if *logFlag != "" {
		opts = append(opts, config.WithOverrides(map[string]any{
			"log.file.enabled": true,
			"log.file.path":    *logFlag,
		}))
	}

	mgr := config.NewManager(opts...)
	if err := mgr.LoadFile(path); err != nil {
		return err
	}
	mgr.BindEnv(EnvPrefix)
	if err := mgr.Unmarshal(target); err != nil {
		return err
	}
	return config.NewValidator().Validate(target)
}

func locateConfig(dir string) (string, error) {
	path := *configFlag
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("config file %s does not exist", path)
	}
	return path, nil
}

// binaryDir 可执行文件所在目录，解析符号链接失败时退回原路径
func binaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	return filepath.Dir(exe)
}

// GetConfigPath LoadConfig 实际读取的文件，热加载监听它
func GetConfigPath() string {
	return resolvedConfig
}
