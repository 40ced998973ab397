package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultLockTTL = 10 * time.Second

// 只有持有者（value 相同）才能释放或续期
var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Lock 单节点互斥锁，用于多实例间的定时备份互斥
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewLock ttl <= 0 时使用 10s
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{client: client, key: key, token: uuid.NewString(), ttl: ttl}
}

// Lock 不等待，已被占用时返回 ErrLockFailed
func (l *Lock) Lock(ctx context.Context) error {
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return wrap("setnx", err)
	}
	if !ok {
		return ErrLockFailed
	}
	return nil
}

// Unlock 锁已过期或被他人持有时返回 ErrLockNotHeld
func (l *Lock) Unlock(ctx context.Context) error {
	return l.runOwned(ctx, releaseScript, "release")
}

// Refresh 把剩余时间重置为 ttl
func (l *Lock) Refresh(ctx context.Context) error {
	return l.runOwned(ctx, extendScript, "extend", l.ttl.Milliseconds())
}

func (l *Lock) runOwned(ctx context.Context, s *goredis.Script, name string, extra ...interface{}) error {
	n, err := s.Run(ctx, l.client.rdb, []string{l.key}, append([]interface{}{l.token}, extra...)...).Int64()
	if err != nil {
		return wrap(name, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// WithLock 持锁执行 fn；fn 与释放的错误合并返回
func (c *Client) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	lock := NewLock(c, key, ttl)
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	fnErr := fn()
	// 调用方 context 已取消时仍要释放，否则锁残留到 TTL
	return errors.Join(fnErr, lock.Unlock(context.WithoutCancel(ctx)))
}
