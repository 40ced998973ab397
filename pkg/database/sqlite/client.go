package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

var (
	// ErrEmptyPath 未配置数据库路径
	ErrEmptyPath = errors.New("sqlite: empty db path")
	// ErrNoRows 查询无结果
	ErrNoRows = sql.ErrNoRows
)

// Client SQLite 客户端
//
// 只保留一个连接：所有写入串行化，WAL 模式下读写互不阻塞。
type Client struct {
	db  *sql.DB
	cfg *Config
}

// Open 打开（必要时创建）数据库文件
func Open(cfg *Config) (*Client, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(newCfg.Path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db, newCfg); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Client{db: db, cfg: newCfg}, nil
}

func initPragmas(db *sql.DB, cfg *Config) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA synchronous=%s;", cfg.Synchronous),
		fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// EnsureSchema 依次执行建表语句（需要幂等，如 CREATE TABLE IF NOT EXISTS）
func (c *Client) EnsureSchema(ctx context.Context, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Builder 返回绑定到当前连接的 squirrel 构建器
func (c *Client) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(c.db)
}

// DB 返回底层 *sql.DB
func (c *Client) DB() *sql.DB {
	return c.db
}

// Path 数据库文件路径
func (c *Client) Path() string {
	return c.cfg.Path
}

// VacuumInto 将当前数据库完整复制到 dest（目标文件必须不存在）
func (c *Client) VacuumInto(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("failed to vacuum into %s: %w", dest, err)
	}
	return nil
}

// Close 关闭数据库
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
