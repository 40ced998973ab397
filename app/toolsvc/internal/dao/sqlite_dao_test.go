package dao

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/database/sqlite"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

func TestSQLiteStorage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStorage(&sqlite.Config{Path: filepath.Join(dir, "tools.db")}, filepath.Join(dir, "backups"), newTestEnvelope(t), logger.NewNoop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }

	exerciseStorage(t, s, "owner-1")

	_, err = os.Stat(filepath.Join(dir, "backups", "20261017-120000.db"))
	assert.NoError(t, err)
}
