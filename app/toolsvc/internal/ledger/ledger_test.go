package ledger

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/attribute"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/catalog"
	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	c, err := catalog.New(&catalog.Tables{
		Enchantments: []catalog.Enchantment{
			{ID: "explosive", MaxLevel: 5, ToolTypes: []string{"pickaxe"}},
			{ID: "fortune", ToolTypes: []string{"pickaxe", "sword"}},
			{ID: "unbound"},
		},
	}, logger.NewNoop())
	require.NoError(t, err)
	return New(c, c, &Config{MaxLevel: 100, CubeRecoveryChance: 0.5}, opts...)
}

func sword() *model.ToolRecord {
	rec := model.NewToolRecord("s-1", "sword")
	rec.Enchantments["fortune"] = 2
	return rec
}

func TestUpgradeValidationLeavesRecordUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		target  int
		tool    string
		wantErr error
	}{
		{"unknown enchantment", "missing", 3, "sword", model.ErrUnknownEnchantment},
		{"incompatible tool", "explosive", 3, "sword", model.ErrIncompatibleTool},
		{"no declared tool types", "unbound", 1, "sword", model.ErrIncompatibleTool},
		{"zero level", "fortune", 0, "sword", model.ErrInvalidLevel},
		{"negative level", "fortune", -4, "sword", model.ErrInvalidLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			rec := sword()
			before := rec.Clone()

			_, err := l.UpgradeEnchantment(rec, tt.id, tt.target, tt.tool)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.True(t, errors.Is(err, model.ErrValidation))
			assert.True(t, before.Equal(rec))
		})
	}
}

func TestUpgradeEnchantment(t *testing.T) {
	l := newTestLedger(t)
	rec := model.NewToolRecord("p-1", "pickaxe")

	res, err := l.UpgradeEnchantment(rec, "explosive", 3, "pickaxe")
	require.NoError(t, err)
	assert.Equal(t, UpgradeResult{EnchantID: "explosive", Previous: 0, Level: 3, RefreshLore: true}, res)

	res, err = l.UpgradeEnchantment(rec, "explosive", 50, "pickaxe")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Level, "clamped to definition max")
	assert.Equal(t, 3, res.Previous)

	res, err = l.UpgradeEnchantment(rec, "fortune", 5000, "pickaxe")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Level, "clamped to global max")
}

func TestCubeBoostNotAnImprovement(t *testing.T) {
	l := newTestLedger(t)
	rec := model.NewToolRecord("p-1", "pickaxe")
	rec.Enchantments["fortune"] = 1

	prev, err := l.ApplyCubeBoost(rec, "fortune", 0.20)
	require.NoError(t, err)
	assert.Zero(t, prev)

	_, err = l.ApplyCubeBoost(rec, "fortune", 0.15)
	assert.True(t, errors.Is(err, model.ErrNotAnImprovement))
	assert.Equal(t, 0.20, rec.CubeBoosts["fortune"])

	_, err = l.ApplyCubeBoost(rec, "fortune", 0.20)
	assert.True(t, errors.Is(err, model.ErrNotAnImprovement))

	_, err = l.ApplyCubeBoost(rec, "explosive", 0.5)
	assert.True(t, errors.Is(err, model.ErrMissingEnchantment))
	assert.NotContains(t, rec.CubeBoosts, "explosive")
}

func TestCubeBoostRejectsUnstorableValues(t *testing.T) {
	l := newTestLedger(t)
	rec := model.NewToolRecord("p-1", "pickaxe")
	rec.Enchantments["fortune"] = 1
	_, err := l.ApplyCubeBoost(rec, "fortune", 0.20)
	require.NoError(t, err)

	for _, b := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e15, attribute.MaxBoost + 1, 0, -0.5, 0.00004} {
		_, err = l.ApplyCubeBoost(rec, "fortune", b)
		assert.True(t, errors.Is(err, model.ErrInvalidBoost), "boost %v", b)
		assert.Equal(t, 0.20, rec.CubeBoosts["fortune"], "boost %v", b)
	}

	// 0.20004 与 0.20 存储为相同的基点
	_, err = l.ApplyCubeBoost(rec, "fortune", 0.20004)
	assert.True(t, errors.Is(err, model.ErrNotAnImprovement))
	assert.Equal(t, 0.20, rec.CubeBoosts["fortune"])

	_, err = l.ApplyCubeBoost(rec, "fortune", attribute.MaxBoost)
	require.NoError(t, err)
	assert.Equal(t, attribute.MaxBoost, rec.CubeBoosts["fortune"])
}

func TestRemoveCubeBoost(t *testing.T) {
	roll := 0.9
	l := newTestLedger(t, WithRand(func() float64 { return roll }))
	rec := model.NewToolRecord("p-1", "pickaxe")
	rec.Enchantments["fortune"] = 1
	rec.CubeBoosts["fortune"] = 0.3

	cube, removed := l.RemoveCubeBoost(rec, "fortune")
	assert.True(t, removed)
	assert.Nil(t, cube)
	assert.Empty(t, rec.CubeBoosts)

	cube, removed = l.RemoveCubeBoost(rec, "fortune")
	assert.False(t, removed)
	assert.Nil(t, cube)

	roll = 0.1
	rec.CubeBoosts["fortune"] = 0.4
	cube, removed = l.RemoveCubeBoost(rec, "fortune")
	assert.True(t, removed)
	require.NotNil(t, cube)
	assert.Equal(t, model.RecoveredCube{EnchantID: "fortune", Boost: 0.4}, *cube)
}

func TestSetEnchantmentLevelAndReset(t *testing.T) {
	l := newTestLedger(t)
	rec := model.NewToolRecord("p-1", "pickaxe")

	l.SetEnchantmentLevel(rec, "fortune", 4)
	rec.CubeBoosts["fortune"] = 0.2
	l.SetEnchantmentLevel(rec, "explosive", 2)
	l.SetEnchantmentLevel(rec, "fortune", 0)
	assert.Equal(t, map[string]int{"explosive": 2}, rec.Enchantments)
	assert.Empty(t, rec.CubeBoosts)

	rec.CubeBoosts["explosive"] = 0.1
	snap := l.ResetAll(rec)
	assert.Equal(t, map[string]int{"explosive": 2}, snap.Enchantments)
	assert.Equal(t, map[string]float64{"explosive": 0.1}, snap.CubeBoosts)
	assert.Empty(t, rec.Enchantments)
	assert.Empty(t, rec.CubeBoosts)
}

func TestConfigureFallsBack(t *testing.T) {
	l := newTestLedger(t)
	l.Configure(&Config{MaxLevel: 0, CubeRecoveryChance: 7})
	assert.Equal(t, 1000, l.MaxLevel())
	assert.Equal(t, 1.0, l.chance())
}
