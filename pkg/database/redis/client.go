// Package redis go-redis 的薄封装，只暴露存储、余额与分布式锁用到的命令
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Client struct {
	rdb goredis.UniversalClient
	db  int
}

func NewClient(cfg *Config) (*Client, error) {
	c, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &Client{db: c.DB, rdb: goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:           c.Addrs,
		Password:        c.Password,
		DB:              c.DB,
		MaxIdleConns:    c.Pool.MaxIdleConns,
		MaxActiveConns:  c.Pool.MaxOpenConns,
		ConnMaxLifetime: c.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: c.Pool.ConnMaxIdleTime,
		DialTimeout:     c.Pool.DialTimeout,
		ReadTimeout:     c.Pool.ReadTimeout,
		WriteTimeout:    c.Pool.WriteTimeout,
		PoolTimeout:     c.Pool.PoolTimeout,
	})}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return wrap("ping", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Pipe MULTI/EXEC 中可用的写命令
type Pipe struct {
	ctx context.Context
	p   goredis.Pipeliner
}

func (p *Pipe) Set(key string, value interface{}, ttl time.Duration) *Pipe {
	p.p.Set(p.ctx, key, value, ttl)
	return p
}

func (p *Pipe) Del(keys ...string) *Pipe {
	p.p.Del(p.ctx, keys...)
	return p
}

func (p *Pipe) SAdd(key string, members ...interface{}) *Pipe {
	p.p.SAdd(p.ctx, key, members...)
	return p
}

func (p *Pipe) SRem(key string, members ...interface{}) *Pipe {
	p.p.SRem(p.ctx, key, members...)
	return p
}

// TxPipelined fn 中排队的命令一次提交，fn 出错则不提交
func (c *Client) TxPipelined(ctx context.Context, fn func(p *Pipe) error) error {
	_, err := c.rdb.TxPipelined(ctx, func(pl goredis.Pipeliner) error {
		return fn(&Pipe{ctx: ctx, p: pl})
	})
	if err != nil {
		return fmt.Errorf("redis: tx: %w", err)
	}
	return nil
}
