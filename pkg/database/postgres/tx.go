package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx 只在 WithTx 回调内有效
type Tx struct {
	tx pgx.Tx
}

// Exec 返回受影响行数
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TxQueryOne 事务内的 QueryOne，可配合 SELECT ... FOR UPDATE 使用
func TxQueryOne[T any](t *Tx, ctx context.Context, sql string, args ...any) (*T, error) {
	return collectOne[T](ctx, t.tx, sql, args...)
}

// WithTx fn 返回 nil 时提交，返回错误或 panic 时回滚
func (c *Client) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return pgx.BeginFunc(ctx, c.pool, func(ptx pgx.Tx) error {
		return fn(&Tx{tx: ptx})
	})
}
