package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadToolsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  max_enchant_level: 250
  refund_rate: 0.5
  progression:
    base: 800
    increment: 200
storage:
  driver: sqlite
`), 0o644))

	cfg, err := loadToolsConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.MaxEnchantLevel)
	assert.Equal(t, 0.5, cfg.RefundRate)
	assert.Equal(t, int64(800), cfg.Progression.Base)
	assert.Equal(t, int64(200), cfg.Progression.Increment)
	// 默认值在 ReloadWith 中合并
	assert.Empty(t, cfg.CatalogDir)
}

func TestLoadToolsConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools:\n  refund_rate: 1.5\n"), 0o644))

	_, err := loadToolsConfig(path)
	assert.Error(t, err)
}
