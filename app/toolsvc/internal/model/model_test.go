package model

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolRecordClone(t *testing.T) {
	rec := NewToolRecord("u1", "pickaxe")
	rec.Enchantments["efficiency"] = 3
	rec.CubeBoosts["efficiency"] = 0.25

	cp := rec.Clone()
	require.True(t, rec.Equal(cp))

	cp.Enchantments["efficiency"] = 4
	cp.CubeBoosts["fortune"] = 0.1
	assert.Equal(t, 3, rec.Enchantments["efficiency"])
	assert.NotContains(t, rec.CubeBoosts, "fortune")
	assert.False(t, rec.Equal(cp))
}

func TestOwnerCollectionDeepCopy(t *testing.T) {
	c := NewOwnerCollection("owner-1")
	c.Put(NewToolRecord("u1", "pickaxe"))

	cp := c.DeepCopy()
	cp.Tools["u1"].Level = 9
	cp.Put(NewToolRecord("u2", "axe"))

	rec, ok := c.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Level)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Remove("u1"))
	assert.False(t, c.Remove("u1"))
}

func TestItemStackMetaIsDetached(t *testing.T) {
	item := NewItemStack("DIAMOND_PICKAXE")
	meta := item.Meta()
	meta.Data["gens:level"] = int64(2)

	_, ok := item.Meta().Data.GetInt("gens:level")
	assert.False(t, ok)

	item.SetMeta(meta)
	v, ok := item.Meta().Data.GetInt("gens:level")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestDataContainerTypedAccess(t *testing.T) {
	d := DataContainer{"s": "x", "i": 3, "f": float32(1.5), "bad": []int{1}}

	s, ok := d.GetString("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	i, ok := d.GetInt("i")
	assert.True(t, ok)
	assert.Equal(t, int64(3), i)

	f, ok := d.GetFloat("f")
	assert.True(t, ok)
	assert.InDelta(t, 1.5, f, 1e-9)

	_, ok = d.GetInt("bad")
	assert.False(t, ok)
	_, ok = d.GetString("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"bad", "f", "i", "s"}, d.Keys())
}

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class error
	}{
		{"unknown enchantment", errors.Wrapf(ErrUnknownEnchantment, "enchantment %q", "x"), ErrValidation},
		{"insufficient currency", ErrInsufficientCurrency, ErrValidation},
		{"storage", StorageError(errors.New("disk full"), "save owner"), ErrStorage},
		{"economy", EconomyError(nil, "debit"), ErrEconomy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.class))
			assert.NotEmpty(t, UserMessage(tt.err))
		})
	}

	wrapped := errors.Wrapf(ErrUnknownEnchantment, "enchantment %q", "x")
	assert.True(t, errors.Is(wrapped, ErrUnknownEnchantment))
	assert.False(t, errors.Is(wrapped, ErrIncompatibleTool))
	assert.Equal(t, "That enchantment does not exist.", UserMessage(wrapped))
	assert.Equal(t, genericMessage, UserMessage(errors.New("boom")))
	assert.Empty(t, UserMessage(nil))
}
