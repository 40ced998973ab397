package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
)

// 余额不足时不做任何修改
const debitScript = `
local bal = tonumber(redis.call("HGET", KEYS[1], ARGV[1]) or "0")
local amt = tonumber(ARGV[2])
if bal < amt then
	return 0
end
redis.call("HINCRBYFLOAT", KEYS[1], ARGV[1], -amt)
return 1
`

// RedisGateway 基于 Redis 哈希的余额，键为 <prefix><owner>，字段为货币
type RedisGateway struct {
	client *redis.Client
	prefix string
}

var _ Gateway = (*RedisGateway)(nil)

// NewRedisGateway 创建 Redis 余额
func NewRedisGateway(client *redis.Client, prefix string) *RedisGateway {
	return &RedisGateway{client: client, prefix: prefix}
}

func (g *RedisGateway) key(owner string) string {
	return g.prefix + owner
}

func (g *RedisGateway) Balance(ctx context.Context, owner, currency string) (float64, error) {
	raw, err := g.client.HGet(ctx, g.key(owner), currency)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", raw, err)
	}
	return v, nil
}

func (g *RedisGateway) Credit(ctx context.Context, owner, currency string, amount float64) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	if _, err := g.client.HIncrByFloat(ctx, g.key(owner), currency, amount); err != nil {
		return fmt.Errorf("failed to credit: %w", err)
	}
	return nil
}

func (g *RedisGateway) Debit(ctx context.Context, owner, currency string, amount float64) (bool, error) {
	if err := validAmount(amount); err != nil {
		return false, err
	}
	if amount == 0 {
		return true, nil
	}
	res, err := g.client.Eval(ctx, debitScript, []string{g.key(owner)}, currency, strconv.FormatFloat(amount, 'f', -1, 64))
	if err != nil {
		return false, fmt.Errorf("failed to debit: %w", err)
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}
