package dao

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ImOpaque/GensTools-sub000/pkg/checksum"
	"github.com/ImOpaque/GensTools-sub000/pkg/compress"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, c := range []compress.Type{compress.TypeNone, compress.TypeSnappy, compress.TypeZstd, compress.TypeLZ4} {
		for _, h := range []checksum.Type{checksum.TypeCRC32, checksum.TypeCRC32C, checksum.TypeXXHash} {
			t.Run(string(c)+"/"+string(h), func(t *testing.T) {
				env, err := NewEnvelope(c, h)
				require.NoError(t, err)

				want := sampleCollection("owner-1")
				data, err := env.Marshal("owner-1", want)
				require.NoError(t, err)
				assert.Equal(t, "TOOL", string(data[:4]))

				got, err := env.Unmarshal(data)
				require.NoError(t, err)
				assertSameCollection(t, want, got)
			})
		}
	}
}

func TestEnvelopeRejectsCorruption(t *testing.T) {
	env := newTestEnvelope(t)
	data, err := env.Marshal("owner-1", sampleCollection("owner-1"))
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrCorruptRecord},
		{"bad magic", append([]byte("JUNK"), data[4:]...), ErrCorruptRecord},
		{"truncated header", data[:7], ErrCorruptRecord},
		{"truncated body", data[:len(data)-3], ErrCorruptRecord},
		{"flipped byte", flipped, ErrCorruptRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Unmarshal(tt.data)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEnvelopeVersionGate(t *testing.T) {
	env := newTestEnvelope(t)
	data, err := env.Marshal("owner-1", sampleCollection("owner-1"))
	require.NoError(t, err)

	future := append([]byte(nil), data...)
	copy(future[5:], "2.0.0")
	_, err = env.Unmarshal(future)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion), "got %v", err)

	minor := append([]byte(nil), data...)
	copy(minor[5:], "1.4.2")
	_, err = env.Unmarshal(minor)
	assert.NoError(t, err)
}
