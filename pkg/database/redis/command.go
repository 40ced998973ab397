package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// wrap 把 goredis.Nil 转成 ErrNil，其他错误带上命令名
func wrap(cmd string, err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNil
	}
	return fmt.Errorf("redis %s: %w", cmd, err)
}

// GetBytes 键不存在时返回 ErrNil
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrap("get", err)
	}
	return b, nil
}

// Copy COPY src dst REPLACE，src 不存在时返回 false
func (c *Client) Copy(ctx context.Context, src, dst string) (bool, error) {
	n, err := c.rdb.Copy(ctx, src, dst, c.db, true).Result()
	if err != nil {
		return false, wrap("copy", err)
	}
	return n == 1, nil
}

// SMembers 集合全部成员，顺序不定
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrap("smembers", err)
	}
	return members, nil
}

// HGet 字段不存在时返回 ErrNil
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := c.rdb.HGet(ctx, key, field).Result()
	if err != nil {
		return "", wrap("hget", err)
	}
	return v, nil
}

// HIncrByFloat 返回自增后的值
func (c *Client) HIncrByFloat(ctx context.Context, key, field string, incr float64) (float64, error) {
	v, err := c.rdb.HIncrByFloat(ctx, key, field, incr).Result()
	if err != nil {
		return 0, wrap("hincrbyfloat", err)
	}
	return v, nil
}

// Eval 执行 Lua 脚本，脚本返回 nil 时得到 ErrNil
func (c *Client) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	v, err := c.rdb.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		return nil, wrap("eval", err)
	}
	return v, nil
}
