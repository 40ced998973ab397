package dao

import (
	"context"
	"errors"
	"time"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

const (
	redisOwnerPrefix  = "tools:owner:"
	redisOwnersKey    = "tools:owners"
	redisBackupPrefix = "tools:backup:"
)

// RedisStorage Redis 存储：tools:owner:<id> 存信封字节，tools:owners 集合索引玩家
type RedisStorage struct {
	client *redis.Client
	env    *Envelope
	logger logger.Logger
	now    func() time.Time
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage 创建 Redis 存储
func NewRedisStorage(client *redis.Client, env *Envelope, l logger.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		env:    env,
		logger: l.Named("dao.redis"),
		now:    time.Now,
	}
}

func ownerKey(ownerID string) string {
	return redisOwnerPrefix + ownerID
}

// Save 在一个事务管道中写入记录并登记玩家
func (s *RedisStorage) Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error {
	payload, err := s.env.Marshal(ownerID, stamp(c))
	if err != nil {
		return model.StorageError(err, "encode owner record")
	}
	err = s.client.TxPipelined(ctx, func(p *redis.Pipe) error {
		p.Set(ownerKey(ownerID), payload, 0).SAdd(redisOwnersKey, ownerID)
		return nil
	})
	if err != nil {
		return model.StorageError(err, "write owner record")
	}
	return nil
}

// Load 读取玩家记录
func (s *RedisStorage) Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error) {
	data, err := s.client.GetBytes(ctx, ownerKey(ownerID))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, nil
		}
		return nil, model.StorageError(err, "read owner record")
	}
	c, err := s.env.Unmarshal(data)
	if err != nil {
		return nil, model.StorageError(err, "decode owner record "+ownerID)
	}
	c.OwnerID = ownerID
	return c, nil
}

// Delete 删除单个工具并回写
func (s *RedisStorage) Delete(ctx context.Context, ownerID, uniqueID string) error {
	c, err := s.Load(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := removeTool(c, ownerID, uniqueID); err != nil {
		return err
	}
	return s.Save(ctx, ownerID, c)
}

// Owners 列出所有玩家
func (s *RedisStorage) Owners(ctx context.Context) ([]string, error) {
	owners, err := s.client.SMembers(ctx, redisOwnersKey)
	if err != nil {
		return nil, model.StorageError(err, "list owners")
	}
	return owners, nil
}

// Backup 将每个玩家的键复制到 tools:backup:<ts>:<id>
func (s *RedisStorage) Backup(ctx context.Context) bool {
	owners, err := s.Owners(ctx)
	if err != nil {
		s.logger.Error("failed to list owners for backup", "error", err)
		return false
	}
	ts := backupStamp(s.now())
	copied := 0
	for _, owner := range owners {
		ok, err := s.client.Copy(ctx, ownerKey(owner), redisBackupPrefix+ts+":"+owner)
		if err != nil {
			s.logger.Error("redis backup failed", "owner_id", owner, "error", err)
			return false
		}
		if ok {
			copied++
		}
	}
	s.logger.Info("backup completed", "backup_at", ts, "records", copied)
	return true
}

// Close 连接由外部管理
func (s *RedisStorage) Close() error {
	return nil
}
