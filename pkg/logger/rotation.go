package logger

import (
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// fileWriter 按 FileConfig.Rotation 选择切分实现
func fileWriter(cfg *FileConfig) (io.Writer, error) {
	if cfg.Rotation == RotationDaily {
		maxAge := time.Duration(cfg.MaxAgeDays) * 24 * time.Hour
		if maxAge <= 0 {
			maxAge = 7 * 24 * time.Hour
		}
		// 当前文件通过软链接保持固定路径，便于 tail
		return rotatelogs.New(
			cfg.Path+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.Path),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(maxAge),
		)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}
