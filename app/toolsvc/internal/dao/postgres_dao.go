package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/postgres"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tool_collections (
		owner_id TEXT PRIMARY KEY,
		saved_at BIGINT NOT NULL,
		payload  BYTEA NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tool_collections_backup (
		backup_at TEXT NOT NULL,
		owner_id  TEXT NOT NULL,
		saved_at  BIGINT NOT NULL,
		payload   BYTEA NOT NULL,
		PRIMARY KEY (backup_at, owner_id)
	)`,
}

// collectionRow 对应 tool_collections 表
type collectionRow struct {
	OwnerID string `db:"owner_id"`
	SavedAt int64  `db:"saved_at"`
	Payload []byte `db:"payload"`
}

// PostgresStorage PostgreSQL 存储
type PostgresStorage struct {
	db     *postgres.Client
	env    *Envelope
	logger logger.Logger
	now    func() time.Time
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage 创建存储并建表
func NewPostgresStorage(ctx context.Context, db *postgres.Client, env *Envelope, l logger.Logger) (*PostgresStorage, error) {
	for _, stmt := range postgresSchema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return nil, model.StorageError(err, "init postgres schema")
		}
	}
	return &PostgresStorage{
		db:     db,
		env:    env,
		logger: l.Named("dao.postgres"),
		now:    time.Now,
	}, nil
}

func (s *PostgresStorage) upsertSQL(ownerID string, c *model.OwnerCollection) (string, []any, error) {
	payload, err := s.env.Marshal(ownerID, c)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode owner record: %w", err)
	}
	return postgres.QueryBuilder.
		Insert("tool_collections").
		Columns("owner_id", "saved_at", "payload").
		Values(ownerID, c.LastSaved.UnixMilli(), payload).
		Suffix("ON CONFLICT (owner_id) DO UPDATE SET saved_at = EXCLUDED.saved_at, payload = EXCLUDED.payload").
		ToSql()
}

func selectSQL(ownerID string, forUpdate bool) (string, []any, error) {
	b := postgres.QueryBuilder.
		Select("owner_id", "saved_at", "payload").
		From("tool_collections").
		Where(squirrel.Eq{"owner_id": ownerID})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	return b.ToSql()
}

func (s *PostgresStorage) decode(row *collectionRow) (*model.OwnerCollection, error) {
	c, err := s.env.Unmarshal(row.Payload)
	if err != nil {
		return nil, model.StorageError(err, "decode owner record "+row.OwnerID)
	}
	c.OwnerID = row.OwnerID
	return c, nil
}

// Save 按 owner_id upsert
func (s *PostgresStorage) Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error {
	query, args, err := s.upsertSQL(ownerID, stamp(c))
	if err != nil {
		return model.StorageError(err, "build upsert")
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return model.StorageError(err, "upsert owner record")
	}
	return nil
}

// Load 读取玩家记录
func (s *PostgresStorage) Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error) {
	query, args, err := selectSQL(ownerID, false)
	if err != nil {
		return nil, model.StorageError(err, "build select")
	}
	row, err := postgres.QueryOne[collectionRow](s.db, ctx, query, args...)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, model.StorageError(err, "select owner record")
	}
	return s.decode(row)
}

// Delete 在事务中锁定记录、删除工具并回写
func (s *PostgresStorage) Delete(ctx context.Context, ownerID, uniqueID string) error {
	return s.db.WithTx(ctx, func(tx *postgres.Tx) error {
		query, args, err := selectSQL(ownerID, true)
		if err != nil {
			return model.StorageError(err, "build select")
		}
		row, err := postgres.TxQueryOne[collectionRow](tx, ctx, query, args...)
		if err != nil {
			if postgres.IsNoRows(err) {
				return removeTool(nil, ownerID, uniqueID)
			}
			return model.StorageError(err, "select owner record")
		}
		c, err := s.decode(row)
		if err != nil {
			return err
		}
		if err := removeTool(c, ownerID, uniqueID); err != nil {
			return err
		}
		query, args, err = s.upsertSQL(ownerID, c)
		if err != nil {
			return model.StorageError(err, "build upsert")
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return model.StorageError(err, "update owner record")
		}
		return nil
	})
}

// Owners 列出所有玩家
func (s *PostgresStorage) Owners(ctx context.Context) ([]string, error) {
	query, args, err := postgres.QueryBuilder.
		Select("owner_id").
		From("tool_collections").
		OrderBy("owner_id").
		ToSql()
	if err != nil {
		return nil, model.StorageError(err, "build select")
	}
	owners, err := s.db.QueryStrings(ctx, query, args...)
	if err != nil {
		return nil, model.StorageError(err, "list owners")
	}
	return owners, nil
}

// Backup 将当前全部记录复制到 tool_collections_backup，以时间戳标记
func (s *PostgresStorage) Backup(ctx context.Context) bool {
	ts := backupStamp(s.now())
	query, args, err := postgres.QueryBuilder.
		Insert("tool_collections_backup").
		Columns("backup_at", "owner_id", "saved_at", "payload").
		Select(squirrel.
			Select().
			Column(squirrel.Expr("?", ts)).
			Columns("owner_id", "saved_at", "payload").
			From("tool_collections")).
		Suffix("ON CONFLICT (backup_at, owner_id) DO NOTHING").
		ToSql()
	if err != nil {
		s.logger.Error("failed to build backup query", "error", err)
		return false
	}
	n, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("postgres backup failed", "backup_at", ts, "error", err)
		return false
	}
	s.logger.Info("backup completed", "backup_at", ts, "records", n)
	return true
}

// Close 连接由外部管理
func (s *PostgresStorage) Close() error {
	return nil
}
