package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// QueryBuilder squirrel 构建器，使用 $N 占位符
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// querier 连接池与事务共有的查询方法
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.QueryTimeout)
}

// QueryOne 按列名映射到 T 的 db tag，无结果时返回的错误满足 IsNoRows
func QueryOne[T any](c *Client, ctx context.Context, sql string, args ...any) (*T, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return collectOne[T](ctx, c.pool, sql, args...)
}

// QueryStrings 查询单列文本
func (c *Client) QueryStrings(ctx context.Context, sql string, args ...any) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Exec 返回受影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres exec: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectOne[T any](ctx context.Context, q querier, sql string, args ...any) (*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
}

// IsNoRows 查询结果为空
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
