package dao

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/database/redis"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

func TestRedisStorage(t *testing.T) {
	client, err := redis.NewClient(&redis.Config{Pool: redis.PoolConfig{DialTimeout: 200 * time.Millisecond}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	owner := "test-" + uuid.NewString()
	ts := time.Now()
	t.Cleanup(func() {
		bg := context.Background()
		_ = client.TxPipelined(bg, func(p *redis.Pipe) error {
			p.Del(ownerKey(owner), redisBackupPrefix+backupStamp(ts)+":"+owner)
			p.SRem(redisOwnersKey, owner)
			return nil
		})
	})

	s := NewRedisStorage(client, newTestEnvelope(t), logger.NewNoop())
	s.now = func() time.Time { return ts }
	exerciseStorage(t, s, owner)
}
