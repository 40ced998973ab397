package gameconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

type row struct {
	ID       string `yaml:"id"`
	MaxLevel int    `yaml:"max_level"`
}

type settings struct {
	Namespace string `yaml:"namespace"`
	Limit     int    `yaml:"limit"`
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enchantments.yaml"), []byte(`
- id: efficiency
  max_level: 5
- id: fortune
  max_level: 3
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte("- id: x\n  maxlevel: 1\n"), 0o644))

	rows, err := LoadTable[row](dir, "enchantments", logger.NewNoop())
	require.NoError(t, err)
	assert.Equal(t, []row{{"efficiency", 5}, {"fortune", 3}}, rows)

	rows, err = LoadTable[row](dir, "missing", logger.NewNoop())
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = LoadTable[row](dir, "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = LoadTable[row](dir, "typo", nil)
	assert.Error(t, err)
}

func TestLoadSingleton(t *testing.T) {
	dir := t.TempDir()
	def := settings{Namespace: "gens", Limit: 10}

	got, err := LoadSingleton(dir, "settings", def, nil)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	require.NoError(t, os.WriteFile(TablePath(dir, "settings"), []byte("limit: 20\n"), 0o644))
	got, err = LoadSingleton(dir, "settings", def, nil)
	require.NoError(t, err)
	assert.Equal(t, settings{Namespace: "gens", Limit: 20}, got)
}
