package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

func TestRequiredExp(t *testing.T) {
	c := NewCurve(nil)
	assert.Equal(t, int64(1500), c.RequiredExp(1))
	assert.Equal(t, int64(2000), c.RequiredExp(2))

	custom := NewCurve(&Config{Base: 0, Increment: -1})
	assert.Equal(t, int64(1500), custom.RequiredExp(1))
}

func TestAddExperience(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		wantLevel int
		wantExp   int64
		leveledUp bool
	}{
		{"below threshold", 600, 1, 600, false},
		{"single level up", 1600, 2, 100, true},
		{"exact threshold", 1500, 2, 0, true},
		{"multiple levels", 1500 + 2000 + 10, 3, 10, true},
		{"zero is no-op", 0, 1, 0, false},
		{"negative is no-op", -50, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCurve(DefaultConfig())
			rec := model.NewToolRecord("u", "pickaxe")
			got := c.AddExperience(rec, tt.amount)
			assert.Equal(t, tt.leveledUp, got)
			assert.Equal(t, tt.wantLevel, rec.Level)
			assert.Equal(t, tt.wantExp, rec.Experience)
			assert.Less(t, rec.Experience, c.RequiredExp(rec.Level))
		})
	}
}

func TestAddExperienceSaturates(t *testing.T) {
	c := NewCurve(DefaultConfig())
	rec := model.NewToolRecord("u", "pickaxe")
	require.False(t, c.AddExperience(rec, 600))

	assert.True(t, c.AddExperience(rec, math.MaxInt64))
	assert.Greater(t, rec.Level, 1)
	assert.GreaterOrEqual(t, rec.Experience, int64(0))
	assert.Less(t, rec.Experience, c.RequiredExp(rec.Level))

	level := rec.Level
	assert.False(t, c.AddExperience(rec, 1))
	assert.Equal(t, level, rec.Level)

	flat := NewCurve(&Config{Base: 2, Increment: 0})
	rec = model.NewToolRecord("u", "pickaxe")
	assert.True(t, flat.AddExperience(rec, math.MaxInt64))
	assert.Equal(t, int64(1), rec.Experience)
	assert.Equal(t, int64(math.MaxInt64/2+1), int64(rec.Level))
}

func TestLevelsCostMatchesStepwise(t *testing.T) {
	c := NewCurve(&Config{Base: 300, Increment: 70})
	for level := 1; level < 20; level++ {
		var want int64
		for k := int64(0); k < 30; k++ {
			assert.Equal(t, want, levelsCost(int64(level), k, 300, 70), "level %d k %d", level, k)
			want += c.RequiredExp(level + int(k))
		}
	}
	assert.Equal(t, int64(math.MaxInt64), levelsCost(1, math.MaxInt64/2, 1000, 500))
}

func TestNormalizeAfterCurveChange(t *testing.T) {
	rec := model.NewToolRecord("u", "pickaxe")
	rec.Experience = 1400

	steep := NewCurve(DefaultConfig())
	assert.False(t, steep.Normalize(rec))

	flat := NewCurve(&Config{Base: 500, Increment: 100})
	assert.True(t, flat.Normalize(rec))
	assert.Equal(t, 3, rec.Level)
	assert.Equal(t, int64(1400-600-700), rec.Experience)

	broken := &model.ToolRecord{Level: 0, Experience: -5}
	assert.True(t, flat.Normalize(broken))
	assert.Equal(t, 1, broken.Level)
	assert.Equal(t, int64(0), broken.Experience)
}

func TestConfigure(t *testing.T) {
	c := NewCurve(nil)
	c.Configure(&Config{Base: 200, Increment: 0})
	assert.Equal(t, int64(200), c.RequiredExp(1))
	assert.Equal(t, int64(200), c.RequiredExp(50))

	c.Configure(nil)
	assert.Equal(t, int64(1500), c.RequiredExp(1))
}
