package uint256_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xbridge-network/xbridge-daemon/pkg/uint256"
)

func TestRoundTrip(t *testing.T) {
	id := uint256.Random()
	parsed, err := uint256.FromString(id.String())
	require.NoError(t, err)
	require.True(t, id.Equal(parsed))

	fromBytes, err := uint256.New(id.Bytes())
	require.NoError(t, err)
	require.True(t, id.Equal(fromBytes))
}

func TestFailingNew(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{
			name: "with_nil_buffer",
			buf:  nil,
		},
		{
			name: "with_short_buffer",
			buf:  make([]byte, 31),
		},
		{
			name: "with_long_buffer",
			buf:  make([]byte, 33),
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			_, err := uint256.New(tt.buf)
			require.ErrorIs(t, err, uint256.ErrInvalidLength)
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	id := uint256.Random()
	buf, err := json.Marshal(id)
	require.NoError(t, err)
	require.Equal(t, `"`+id.String()+`"`, string(buf))

	var parsed uint256.Uint256
	require.NoError(t, json.Unmarshal(buf, &parsed))
	require.True(t, id.Equal(parsed))

	require.Error(t, json.Unmarshal([]byte(`"zz"`), &parsed))
	require.Error(t, json.Unmarshal([]byte(`42`), &parsed))
}

func TestCompare(t *testing.T) {
	low, err := uint256.FromString(
		"0000000000000000000000000000000000000000000000000000000000000001",
	)
	require.NoError(t, err)
	high, err := uint256.FromString(
		"0100000000000000000000000000000000000000000000000000000000000000",
	)
	require.NoError(t, err)

	require.Equal(t, -1, low.Compare(high))
	require.Equal(t, 1, high.Compare(low))
	require.Equal(t, 0, low.Compare(low))
	require.False(t, low.Equal(high))
}

func TestIsZero(t *testing.T) {
	var zero uint256.Uint256
	require.True(t, zero.IsZero())
	require.False(t, uint256.Random().IsZero())
}

func TestDoubleHashDeterminism(t *testing.T) {
	buf := []byte("settlement payload")
	require.True(t, uint256.DoubleHash(buf).Equal(uint256.DoubleHash(buf)))
	require.False(
		t, uint256.DoubleHash(buf).Equal(uint256.DoubleHash([]byte("other"))),
	)
}

func TestRandomUniqueness(t *testing.T) {
	seen := map[uint256.Uint256]struct{}{}
	for i := 0; i < 100; i++ {
		id := uint256.Random()
		_, ok := seen[id]
		require.False(t, ok)
		seen[id] = struct{}{}
	}
}
