package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ImOpaque/GensTools-sub000/app/toolsvc/internal/model"
)

func sampleOwner() *model.OwnerCollection {
	c := model.NewOwnerCollection("alice")
	b := model.NewToolRecord("u-b", "axe")
	a := model.NewToolRecord("u-a", "pickaxe")
	a.Enchantments["fortune"] = 3
	c.Put(b)
	c.Put(a)
	return c
}

func TestPrintCollection(t *testing.T) {
	tests := []struct {
		format    string
		unmarshal func([]byte, any) error
	}{
		{"json", json.Unmarshal},
		{"yaml", yaml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printCollection(&buf, sampleOwner(), tt.format))

			var got struct {
				Owner string `json:"owner" yaml:"owner"`
				Tools []struct {
					UniqueID     string         `json:"unique_id" yaml:"unique_id"`
					Enchantments map[string]int `json:"enchantments" yaml:"enchantments"`
				} `json:"tools" yaml:"tools"`
			}
			require.NoError(t, tt.unmarshal(buf.Bytes(), &got))
			assert.Equal(t, "alice", got.Owner)
			require.Len(t, got.Tools, 2)
			assert.Equal(t, "u-a", got.Tools[0].UniqueID)
			assert.Equal(t, 3, got.Tools[0].Enchantments["fortune"])
		})
	}

	assert.Error(t, printCollection(&bytes.Buffer{}, sampleOwner(), "xml"))
}
