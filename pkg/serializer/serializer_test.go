package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	UniqueID     string         `codec:"unique_id" yaml:"unique_id"`
	Level        int            `codec:"level" yaml:"level"`
	Experience   int64          `codec:"experience" yaml:"experience"`
	Enchantments map[string]int `codec:"enchantments" yaml:"enchantments"`
}

func TestSerializers(t *testing.T) {
	original := record{
		UniqueID:     "42",
		Level:        3,
		Experience:   120,
		Enchantments: map[string]int{"efficiency": 5, "fortune": 2},
	}

	for _, s := range []Serializer{NewMsgpack(), NewYAML()} {
		t.Run(s.Name(), func(t *testing.T) {
			data, err := s.Serialize(original)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			var decoded record
			require.NoError(t, s.Deserialize(data, &decoded))
			assert.Equal(t, original, decoded)
		})
	}
}

func TestMsgpackRejectsGarbage(t *testing.T) {
	var decoded record
	assert.Error(t, Decode([]byte{0xc1, 0xff, 0x00}, &decoded))
}

func TestYAMLIsReadable(t *testing.T) {
	data, err := NewYAML().Serialize(record{UniqueID: "7", Level: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), "unique_id: \"7\"")
}
