package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Manager 分层配置：默认值 < 配置文件 < 环境变量 < 覆盖值
type Manager interface {
	LoadFile(path string) error
	// BindEnv 以 prefix 绑定环境变量，TOOLSVC_STORAGE_DRIVER 对应 storage.driver
	BindEnv(prefix string)
	Unmarshal(v any) error
	// UnmarshalKey 只解析一个节，例如 "tools"
	UnmarshalKey(key string, v any) error
	IsSet(key string) bool
}

type viperManager struct {
	mu sync.RWMutex
	v  *viper.Viper
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &viperManager{v: viper.New()}
	for _, opt := range opts {
		opt(m.v)
	}
	return m
}

func (m *viperManager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func (m *viperManager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetEnvPrefix(prefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()
}

func (m *viperManager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func (m *viperManager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (m *viperManager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}
