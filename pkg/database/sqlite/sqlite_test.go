package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndVacuumInto(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(&Config{Path: filepath.Join(dir, "nested", "tools.db")})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx,
		`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v BLOB NOT NULL);`,
	))
	// 重复执行幂等
	require.NoError(t, c.EnsureSchema(ctx, `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v BLOB NOT NULL);`))

	_, err = c.Builder().Insert("kv").Columns("k", "v").Values("a", []byte("1")).ExecContext(ctx)
	require.NoError(t, err)

	var v []byte
	require.NoError(t, c.Builder().Select("v").From("kv").Where("k = ?", "a").QueryRowContext(ctx).Scan(&v))
	assert.Equal(t, []byte("1"), v)

	dest := filepath.Join(dir, "backups", "snap.db")
	require.NoError(t, c.VacuumInto(ctx, dest))
	_, err = os.Stat(dest)
	assert.NoError(t, err)

	backup, err := Open(&Config{Path: dest})
	require.NoError(t, err)
	defer backup.Close()
	var n int
	require.NoError(t, backup.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open(&Config{Path: "   "})
	// 空白路径不会被 MergeConfig 视为零值
	assert.ErrorIs(t, err, ErrEmptyPath)
}
