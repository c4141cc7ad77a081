package types

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestUnitID(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	id := AddressUnitID(0x20, addr)
	require.Len(t, id, 21)
	require.True(t, id.HasType(0x20))
	require.False(t, id.HasType(0x10))
	require.EqualValues(t, 0x20, id.TypePart())
	require.True(t, id.Eq(NewUnitID(0x20, addr.Bytes())))
	require.Equal(t, -1, id.Compare(AddressUnitID(0x21, addr)))
	require.Equal(t, "20"+"00000000000000000000000000000000000000AA", id.String())

	var empty UnitID
	require.False(t, empty.HasType(0))
	require.Zero(t, empty.TypePart())
}

func TestUnitID_Text(t *testing.T) {
	testCases := []struct {
		name string
		id   UnitID
		text string
	}{
		{name: "bytes", id: UnitID{0x30, 1, 2, 3}, text: "0x30010203"},
		{name: "empty", id: nil, text: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := tc.id.MarshalText()
			require.NoError(t, err)
			require.Equal(t, tc.text, string(text))

			var got UnitID
			require.NoError(t, got.UnmarshalText(text))
			require.Equal(t, tc.id, got)
		})
	}

	t.Run("json", func(t *testing.T) {
		b, err := json.Marshal([]UnitID{{0x10, 0xff}})
		require.NoError(t, err)
		require.JSONEq(t, `["0x10ff"]`, string(b))
	})
	t.Run("invalid hex", func(t *testing.T) {
		var got UnitID
		require.ErrorContains(t, got.UnmarshalText([]byte("10ff")), "decoding unit id")
	})
}
