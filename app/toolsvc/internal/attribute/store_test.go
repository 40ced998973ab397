package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

func newTool(s *Store) (*model.ItemStack, *model.ToolRecord) {
	item := model.NewItemStack("DIAMOND_PICKAXE")
	rec := model.NewToolRecord("u-1", "pickaxe")
	rec.Level = 4
	rec.Experience = 120
	rec.Enchantments["efficiency"] = 5
	rec.Enchantments["fortune"] = 2
	rec.CubeBoosts["efficiency"] = 0.25
	s.WriteRecord(item, rec)
	return item, rec
}

func TestStoreAccessors(t *testing.T) {
	s := NewStore("")
	assert.Equal(t, "gens", s.Namespace())
	assert.Equal(t, "gens:level", s.Key(FieldLevel))

	item := model.NewItemStack("STICK")
	assert.False(t, s.IsTool(item))
	assert.False(t, s.IsTool(nil))

	_, ok := s.GetInt(item, FieldLevel)
	assert.False(t, ok)
	_, ok = s.GetFloat(nil, FieldLevel)
	assert.False(t, ok)

	require.NoError(t, s.SetField(item, FieldToolID, "pickaxe"))
	require.NoError(t, s.SetField(item, FieldLevel, 3))
	assert.Error(t, s.SetField(item, FieldLevel, []int{1}))

	assert.True(t, s.IsTool(item))
	lv, ok := s.GetInt(item, FieldLevel)
	require.True(t, ok)
	assert.Equal(t, int64(3), lv)

	rec, warnings := s.ReadRecord(model.NewItemStack("STICK"))
	assert.Nil(t, rec)
	assert.Empty(t, warnings)
}

func TestStoreRecordRoundTrip(t *testing.T) {
	s := NewStore("gens")
	item, rec := newTool(s)

	got, warnings := s.ReadRecord(item)
	require.NotNil(t, got)
	assert.Empty(t, warnings)
	assert.True(t, rec.Equal(got), "got %+v", got)

	m, ok := s.GetFloat(item, MultiplierField("efficiency"))
	require.True(t, ok)
	assert.InDelta(t, 1.25, m, 1e-9)
	assert.Empty(t, s.CheckConsistency(item))
}

func TestWriteRecordRemovesStaleMultipliers(t *testing.T) {
	s := NewStore("gens")
	item, rec := newTool(s)

	delete(rec.CubeBoosts, "efficiency")
	s.WriteRecord(item, rec)

	assert.False(t, item.Meta().Data.Has(s.Key(MultiplierField("efficiency"))))
	assert.Empty(t, s.CheckConsistency(item))
}

func TestReadRecordToleratesMalformedFields(t *testing.T) {
	s := NewStore("gens")
	item, _ := newTool(s)
	s.Update(item, func(meta *model.ItemMeta) {
		meta.Data[s.Key(FieldEnchantments)] = "v1|efficiency:5,broken"
		meta.Data[s.Key(FieldLevel)] = int64(0)
	})

	rec, warnings := s.ReadRecord(item)
	require.NotNil(t, rec)
	assert.Len(t, warnings, 1)
	assert.Equal(t, map[string]int{"efficiency": 5}, rec.Enchantments)
	assert.Equal(t, 1, rec.Level)
}

func TestReadRecordReportsNonPositiveLevels(t *testing.T) {
	s := NewStore("gens")
	item, _ := newTool(s)
	s.Update(item, func(meta *model.ItemMeta) {
		meta.Data[s.Key(FieldEnchantments)] = "v1|efficiency:5,fortune:0,unbreaking:-2"
	})

	rec, warnings := s.ReadRecord(item)
	assert.Equal(t, map[string]int{"efficiency": 5}, rec.Enchantments)
	require.Len(t, warnings, 1)
	assert.Equal(t, FieldEnchantments, warnings[0].Field)
	assert.Equal(t, []string{"fortune:0", "unbreaking:-2"}, warnings[0].Dropped)
}

func TestCheckConsistencyReportsDivergence(t *testing.T) {
	s := NewStore("gens")
	item, _ := newTool(s)
	s.Update(item, func(meta *model.ItemMeta) {
		meta.Data[s.Key(MultiplierField("efficiency"))] = 1.5
		meta.Data[s.Key(MultiplierField("fortune"))] = 1.1
	})

	div := s.CheckConsistency(item)
	require.Len(t, div, 2)
	assert.Equal(t, "efficiency", div[0].EnchantID)
	assert.InDelta(t, 0.25, div[0].Encoded, 1e-9)
	assert.Equal(t, "fortune", div[1].EnchantID)
	assert.Zero(t, div[1].Encoded)
}
