package dao

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/database/sqlite"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS tool_collections (
	owner_id TEXT PRIMARY KEY,
	saved_at INTEGER NOT NULL,
	payload  BLOB NOT NULL
)`

// SQLiteStorage 嵌入式 SQLite 存储，payload 为二进制信封
type SQLiteStorage struct {
	db        *sqlite.Client
	backupDir string
	env       *Envelope
	logger    logger.Logger
	now       func() time.Time
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage 打开数据库并建表
func NewSQLiteStorage(cfg *sqlite.Config, backupDir string, env *Envelope, l logger.Logger) (*SQLiteStorage, error) {
	db, err := sqlite.Open(cfg)
	if err != nil {
		return nil, model.StorageError(err, "open sqlite")
	}
	if err := db.EnsureSchema(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, model.StorageError(err, "init sqlite schema")
	}
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(db.Path()), "backups")
	}
	return &SQLiteStorage{
		db:        db,
		backupDir: backupDir,
		env:       env,
		logger:    l.Named("dao.sqlite"),
		now:       time.Now,
	}, nil
}

// Save 按 owner_id upsert
func (s *SQLiteStorage) Save(ctx context.Context, ownerID string, c *model.OwnerCollection) error {
	c = stamp(c)
	payload, err := s.env.Marshal(ownerID, c)
	if err != nil {
		return model.StorageError(err, "encode owner record")
	}
	_, err = s.db.Builder().
		Insert("tool_collections").
		Columns("owner_id", "saved_at", "payload").
		Values(ownerID, c.LastSaved.UnixMilli(), payload).
		Suffix("ON CONFLICT(owner_id) DO UPDATE SET saved_at = excluded.saved_at, payload = excluded.payload").
		ExecContext(ctx)
	if err != nil {
		return model.StorageError(err, "upsert owner record")
	}
	return nil
}

// Load 读取玩家记录
func (s *SQLiteStorage) Load(ctx context.Context, ownerID string) (*model.OwnerCollection, error) {
	var payload []byte
	err := s.db.Builder().
		Select("payload").
		From("tool_collections").
		Where(sq.Eq{"owner_id": ownerID}).
		QueryRowContext(ctx).
		Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, model.StorageError(err, "select owner record")
	}
	c, err := s.env.Unmarshal(payload)
	if err != nil {
		return nil, model.StorageError(err, "decode owner record "+ownerID)
	}
	c.OwnerID = ownerID
	return c, nil
}

// Delete 删除单个工具并回写
func (s *SQLiteStorage) Delete(ctx context.Context, ownerID, uniqueID string) error {
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
func (s *SQLiteStorage) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.Builder().
		Select("owner_id").
		From("tool_collections").
		OrderBy("owner_id").
		QueryContext(ctx)
	if err != nil {
		return nil, model.StorageError(err, "list owners")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, model.StorageError(err, "scan owner")
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageError(err, "list owners")
	}
	return out, nil
}

// Backup VACUUM INTO <backupDir>/<ts>.db
func (s *SQLiteStorage) Backup(ctx context.Context) bool {
	dest := filepath.Join(s.backupDir, backupStamp(s.now())+".db")
	if err := s.db.VacuumInto(ctx, dest); err != nil {
		s.logger.Error("sqlite backup failed", "dest", dest, "error", err)
		return false
	}
	s.logger.Info("backup completed", "dest", dest)
	return true
}

// Close 关闭数据库
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
