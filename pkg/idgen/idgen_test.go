package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil uses sonyflake", cfg: nil},
		{name: "sonyflake", cfg: &Config{Strategy: StrategySonyflake, MachineID: 7}},
		{name: "uuid", cfg: &Config{Strategy: StrategyUUID}},
		{name: "unknown", cfg: &Config{Strategy: "snowflake"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			seen := make(map[string]struct{}, 1000)
			for i := 0; i < 1000; i++ {
				id, err := g.NextID()
				require.NoError(t, err)
				require.NotEmpty(t, id)
				_, dup := seen[id]
				require.False(t, dup, "duplicate id %s", id)
				seen[id] = struct{}{}
			}
		})
	}
}
