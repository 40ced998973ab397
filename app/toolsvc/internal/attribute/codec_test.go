package attribute

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]int
	}{
		{"empty", map[string]int{}},
		{"single", map[string]int{"efficiency": 5}},
		{"many", map[string]int{"efficiency": 5, "fortune": 3, "haste": 1000}},
		{"negative and zero values", map[string]int{"a": 0, "b": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, Decode(Encode(tt.in)))
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	m := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	assert.Equal(t, "v1|alpha:2,mid:3,zeta:1", Encode(m))
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode(map[string]int{"bad:id": 1}))
	assert.Equal(t, "v1|ok:1", Encode(map[string]int{"ok": 1, "a,b": 2, "": 3}))
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]int
		dropped int
	}{
		{"empty string", "", map[string]int{}, 0},
		{"legacy unversioned", "efficiency:3,fortune:1", map[string]int{"efficiency": 3, "fortune": 1}, 0},
		{"wrong arity", "v1|a:1:2,b:2", map[string]int{"b": 2}, 1},
		{"non numeric", "v1|a:x,b:2", map[string]int{"b": 2}, 1},
		{"missing id", "v1|:5", map[string]int{}, 1},
		{"trailing delimiter", "v1|a:1,", map[string]int{"a": 1}, 1},
		{"garbage", "%%%", map[string]int{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := DecodeReport(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.dropped == 0 {
				assert.Nil(t, report)
				return
			}
			require.NotNil(t, report)
			assert.Len(t, report.Dropped, tt.dropped)
			assert.True(t, errors.Is(report, model.ErrDecode))
		})
	}
}

func TestDecodeUnknownVersion(t *testing.T) {
	got, report := DecodeReport("v9|a:1")
	assert.Empty(t, got)
	require.NotNil(t, report)
	assert.Equal(t, "v9", report.Version)
	assert.Contains(t, report.Error(), "unsupported codec version")
}

func TestBoostsRoundTrip(t *testing.T) {
	in := map[string]float64{"efficiency": 0.25, "fortune": 0.1234}
	enc := EncodeBoosts(in)
	assert.Equal(t, "v1|efficiency:2500,fortune:1234", enc)
	assert.Equal(t, in, DecodeBoosts(enc))

	assert.Equal(t, "", EncodeBoosts(map[string]float64{"x": 0, "y": -1}))
	assert.Equal(t, map[string]float64{"a": 0.5}, DecodeBoosts("v1|a:5000,b:0,c:-3"))
}

func TestBoostPoints(t *testing.T) {
	bp, ok := BoostPoints(0.20004)
	assert.True(t, ok)
	assert.Equal(t, 2000, bp)

	bp, ok = BoostPoints(MaxBoost)
	assert.True(t, ok)
	assert.Equal(t, math.MaxInt32, bp)

	for _, b := range []float64{math.NaN(), math.Inf(1), 1e15, 0, -1, 0.00004} {
		_, ok = BoostPoints(b)
		assert.False(t, ok, "boost %v", b)
	}
	assert.Equal(t, "", EncodeBoosts(map[string]float64{"a": 1e15, "b": math.Inf(1)}))
}
