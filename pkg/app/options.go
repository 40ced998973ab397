package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// 通过 -ldflags "-X github.com/ImOpaque/GensTools-sub000/pkg/app.Version=..." 注入
var (
	AppName   = "toolsvc"
	Version   = "dev"
	GitCommit = ""
)

type Options struct {
	Name        string
	Version     string
	StopTimeout time.Duration
	Logger      logger.Logger
}

type Option func(*Options)

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStopTimeout 非正数忽略
func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.StopTimeout = d
		}
	}
}

// Build 构建信息
type Build struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

func (b Build) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", b.Version, b.Commit, b.Go, b.Platform)
}

// BuildInfo 未注入 GitCommit 时取 go build 记录的 vcs.revision
func BuildInfo() Build {
	b := Build{
		Version:  Version,
		Commit:   GitCommit,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if b.Commit == "" {
		b.Commit = "unknown"
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					b.Commit = s.Value
				}
			}
		}
	}
	return b
}
