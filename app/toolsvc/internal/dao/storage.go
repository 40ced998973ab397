package dao

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/metrics"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/checksum"
	"github.com/ImOpaque/GensTools-sub000/pkg/compress"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/postgres"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/sqlite"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

// Storage 玩家工具集合的持久化端口
//
// 写入是整条记录覆盖。Load 在记录不存在时返回 (nil, nil)。
type Storage interface {
	Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error
	Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error)
	Backup(ctx context.Context) bool
	Delete(ctx context.Context, ownerID, uniqueID string) error
	Owners(ctx context.Context) ([]string, error)
	Close() error
}

// Driver 存储后端
type Driver string

const (
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// Format 文件后端的记录格式
type Format string

const (
	FormatBinary Format = "binary"
	FormatYAML   Format = "yaml"
)

// backupLayout 备份目录/键使用的时间戳格式
const backupLayout = "20060102-150405"

var (
	// ErrToolNotFound 删除的工具不存在
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidOwnerID 玩家 ID 为空或含非法字符
	ErrInvalidOwnerID = errors.New("invalid owner id")
)

// Config 存储配置
type Config struct {
	Driver      Driver        `mapstructure:"driver" validate:"omitempty,oneof=file sqlite postgres redis"`
	Dir         string        `mapstructure:"dir"`
	Format      Format        `mapstructure:"format" validate:"omitempty,oneof=binary yaml"`
	Compression compress.Type `mapstructure:"compression"`
	Checksum    checksum.Type `mapstructure:"checksum"`
	// BackupCron 定时备份表达式，为空不启用
	BackupCron string        `mapstructure:"backup_cron"`
	SQLite     sqlite.Config `mapstructure:"sqlite"`
}

// DefaultConfig 默认使用二进制文件后端
func DefaultConfig() *Config {
	return &Config{
		Driver:      DriverFile,
		Dir:         "./playerdata",
		Format:      FormatBinary,
		Compression: compress.TypeSnappy,
		Checksum:    checksum.TypeXXHash,
	}
}

// Backends 外部管理生命周期的连接
type Backends struct {
	Postgres *postgres.Client
	Redis    *redis.Client
}

// NewStorage 按 driver 创建存储，并包装操作指标
func NewStorage(cfg *Config, backends Backends, l logger.Logger, m *metrics.ToolMetrics) (Storage, error) {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	merged := *cfg
	if merged.Driver == "" {
		merged.Driver = def.Driver
	}
	if merged.Dir == "" {
		merged.Dir = def.Dir
	}
	if merged.Format == "" {
		merged.Format = def.Format
	}

	env, err := NewEnvelope(merged.Compression, merged.Checksum)
	if err != nil {
		return nil, err
	}

	var s Storage
	switch merged.Driver {
	case DriverFile:
		s, err = NewFileStorage(merged.Dir, merged.Format, env, l)
	case DriverSQLite:
		sc := merged.SQLite
		if sc.Path == "" {
			sc.Path = filepath.Join(merged.Dir, "tools.db")
		}
		s, err = NewSQLiteStorage(&sc, filepath.Join(merged.Dir, "backups"), env, l)
	case DriverPostgres:
		if backends.Postgres == nil {
			return nil, fmt.Errorf("storage driver %q requires a postgres client", merged.Driver)
		}
		s, err = NewPostgresStorage(context.Background(), backends.Postgres, env, l)
	case DriverRedis:
		if backends.Redis == nil {
			return nil, fmt.Errorf("storage driver %q requires a redis client", merged.Driver)
		}
		s = NewRedisStorage(backends.Redis, env, l)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", merged.Driver)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, string(merged.Driver), m), nil
}

// recordSet 所有后端共用的持久化结构
type recordSet struct {
	OwnerID string             `codec:"owner_id" yaml:"owner_id"`
	SavedAt int64              `codec:"saved_at" yaml:"saved_at"`
	Tools   []model.ToolRecord `codec:"tools" yaml:"tools"`
}

func toRecordSet(ownerID string, c *model.OwnerCollection) *recordSet {
	rs := &recordSet{
		OwnerID: ownerID,
		SavedAt: c.LastSaved.UnixMilli(),
		Tools:   make([]model.ToolRecord, 0, len(c.Tools)),
	}
	for _, rec := range c.Tools {
		rs.Tools = append(rs.Tools, *rec.Clone())
	}
	sort.Slice(rs.Tools, func(i, j int) bool { return rs.Tools[i].UniqueID < rs.Tools[j].UniqueID })
	return rs
}

func (rs *recordSet) collection() *model.OwnerCollection {
	c := model.NewOwnerCollection(rs.OwnerID)
	if rs.SavedAt > 0 {
		c.LastSaved = time.UnixMilli(rs.SavedAt)
	}
	for i := range rs.Tools {
		rec := rs.Tools[i]
		rec.EnsureMaps()
		c.Tools[rec.UniqueID] = &rec
	}
	return c
}

// stamp 返回写入时间，未设置时取当前时间
func stamp(c *model.OwnerCollection) *model.OwnerCollection {
	if c.LastSaved.IsZero() {
		cp := *c
		cp.LastSaved = time.Now()
		return &cp
	}
	return c
}

func validateOwnerID(ownerID string) error {
	if ownerID == "" || ownerID == "." || ownerID == ".." ||
		strings.ContainsAny(ownerID, `/\:`) || strings.ContainsRune(ownerID, 0) {
		return errors.Wrapf(ErrInvalidOwnerID, "%q", ownerID)
	}
	return nil
}

func backupStamp(now time.Time) string {
	return now.UTC().Format(backupLayout)
}

// removeTool 从已加载的集合中删除工具，由各后端的 Delete 复用
func removeTool(c *model.OwnerCollection, ownerID, uniqueID string) error {
	if c == nil || !c.Remove(uniqueID) {
		return errors.Wrapf(ErrToolNotFound, "owner %s tool %s", ownerID, uniqueID)
	}
	c.LastSaved = time.Now()
	return nil
}
