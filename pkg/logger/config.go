package logger

// Level 日志等级
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format 输出格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// RotationType 日志文件切分方式
type RotationType string

const (
	// RotationBySize 按大小切分 (lumberjack)
	RotationBySize RotationType = "size"
	// RotationDaily 按天切分 (file-rotatelogs)
	RotationDaily RotationType = "daily"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Config 日志配置
type Config struct {
	Level  Level  `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format Format `mapstructure:"format" validate:"omitempty,oneof=json console"`

	// 控制台与文件可同时开启
	Console bool       `mapstructure:"console"`
	File    FileConfig `mapstructure:"file"`

	// 不低于该等级的日志附带堆栈，为空不附带
	StacktraceLevel Level `mapstructure:"stacktrace_level" validate:"omitempty,oneof=debug info warn error"`

	// 每条日志都带上的固定字段，例如 instance
	Fields map[string]string `mapstructure:"fields"`
}

// FileConfig 文件输出
type FileConfig struct {
	Enabled    bool         `mapstructure:"enabled"`
	Path       string       `mapstructure:"path"`
	Rotation   RotationType `mapstructure:"rotation" validate:"omitempty,oneof=size daily"`
	MaxSizeMB  int          `mapstructure:"max_size_mb"`
	MaxBackups int          `mapstructure:"max_backups"`
	MaxAgeDays int          `mapstructure:"max_age_days"`
	Compress   bool         `mapstructure:"compress"`
}

// DefaultConfig 默认只输出到控制台
func DefaultConfig() *Config {
	return &Config{
		Level:           InfoLevel,
		Format:          ConsoleFormat,
		Console:         true,
		StacktraceLevel: ErrorLevel,
		File: FileConfig{
			Rotation:   RotationBySize,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 7,
		},
	}
}

// Validate 校验输出目标
func (c *Config) Validate() error {
	if c.File.Enabled && c.File.Path == "" {
		return ErrInvalidOutputPath
	}
	if !c.Console && !c.File.Enabled {
		return ErrNoOutputEnabled
	}
	return nil
}
