package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client pgx 连接池封装
type Client struct {
	pool *pgxpool.Pool
	cfg  *Config
}

// New 建立连接池，ConnectTimeout 内 ping 不通即失败
func New(cfg *Config) (*Client, error) {
	merged, err := MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(merged); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connURL(merged))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), merged.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect %s:%d: %w", merged.Host, merged.Port, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping %s:%d: %w", merged.Host, merged.Port, err)
	}
	return &Client{pool: pool, cfg: merged}, nil
}

// Close 关闭连接池，等待借出的连接归还
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg == nil:
		return ErrNilConfig
	case cfg.Host == "":
		return fmt.Errorf("%w: host is empty", ErrInvalidConfig)
	case cfg.Port <= 0 || cfg.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	case cfg.User == "" || cfg.DBName == "":
		return fmt.Errorf("%w: user and db_name are required", ErrInvalidConfig)
	case cfg.Pool.MaxConns <= 0:
		return fmt.Errorf("%w: pool.max_conns must be positive", ErrInvalidConfig)
	case cfg.Pool.MinConns < 0 || cfg.Pool.MinConns > cfg.Pool.MaxConns:
		return fmt.Errorf("%w: pool.min_conns must be within [0, max_conns]", ErrInvalidConfig)
	}
	return nil
}

// connURL 连接池参数通过 pool_* 查询参数交给 pgxpool 解析
func connURL(cfg *Config) string {
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	q.Set("pool_max_conns", strconv.Itoa(int(cfg.Pool.MaxConns)))
	q.Set("pool_min_conns", strconv.Itoa(int(cfg.Pool.MinConns)))
	q.Set("pool_max_conn_lifetime", cfg.Pool.MaxConnLifetime.String())
	q.Set("pool_max_conn_idle_time", cfg.Pool.MaxConnIdleTime.String())
	q.Set("pool_health_check_period", cfg.Pool.HealthCheckPeriod.String())

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}
