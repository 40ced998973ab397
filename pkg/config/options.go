package config

import "github.com/spf13/viper"

// Option 配置来源选项
type Option func(*viper.Viper)

// WithDefaults 最低优先级的默认值，key 使用 "." 分隔的路径
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for key, value := range defaults {
			v.SetDefault(key, value)
		}
	}
}

// WithOverrides 最高优先级的覆盖值，通常来自命令行参数
func WithOverrides(overrides map[string]any) Option {
	return func(v *viper.Viper) {
		for key, value := range overrides {
			v.Set(key, value)
		}
	}
}
