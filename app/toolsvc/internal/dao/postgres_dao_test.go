package dao

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/database/postgres"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

func TestSelectSQL(t *testing.T) {
	query, args, err := selectSQL("owner-1", true)
	require.NoError(t, err)
	assert.Equal(t, "SELECT owner_id, saved_at, payload FROM tool_collections WHERE owner_id = $1 FOR UPDATE", query)
	assert.Equal(t, []any{"owner-1"}, args)
}

// TestPostgresStorage 需要设置 TOOLSVC_TEST_POSTGRES_HOST
func TestPostgresStorage(t *testing.T) {
	host := os.Getenv("TOOLSVC_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("TOOLSVC_TEST_POSTGRES_HOST not set")
	}
	db, err := postgres.New(&postgres.Config{Host: host, ConnectTimeout: 2 * time.Second})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	s, err := NewPostgresStorage(context.Background(), db, newTestEnvelope(t), logger.NewNoop())
	require.NoError(t, err)

	owner := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), "DELETE FROM tool_collections WHERE owner_id = $1", owner)
		_, _ = db.Exec(context.Background(), "DELETE FROM tool_collections_backup WHERE owner_id = $1", owner)
	})
	exerciseStorage(t, s, owner)
}
