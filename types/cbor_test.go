package types

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestCbor_Canonical(t *testing.T) {
	// map keys are sorted so the encoding does not depend on insertion order
	a := NewEvent("test", common.Address{1}).With("limit", 4000).With("debt", 3000).With("apr", 900)
	b := NewEvent("test", common.Address{1}).With("apr", 900).With("limit", 4000).With("debt", 3000)
	ba, err := Cbor.Marshal(a)
	require.NoError(t, err)
	bb, err := Cbor.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, ba, bb)

	// toarray structs are encoded as arrays, the first byte is the array header
	require.EqualValues(t, 0x85, ba[0])
}

func TestCbor_EncodeDecode(t *testing.T) {
	e := NewEvent("transfer", common.Address{2}).WithRef(common.Hash{3}).With("amount", 10)
	e.Seq = 7

	buf := new(bytes.Buffer)
	require.NoError(t, Cbor.Encode(buf, e))
	enc, err := Cbor.GetEncoder(buf)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(e))

	dec := Cbor.GetDecoder(bytes.NewReader(buf.Bytes()))
	for i := 0; i < 2; i++ {
		got := &Event{}
		require.NoError(t, dec.Decode(got))
		require.Equal(t, e, got)
	}
	require.ErrorContains(t, dec.Decode(&Event{}), "EOF")
}

func TestCbor_DecodeErrors(t *testing.T) {
	valid, err := Cbor.Marshal(NewEvent("x", common.Address{}))
	require.NoError(t, err)

	testCases := []struct {
		name   string
		input  []byte
		target any
		errStr string
	}{
		{name: "empty", input: nil, target: &Event{}, errStr: "EOF"},
		{name: "truncated", input: valid[:len(valid)-1], target: &Event{}, errStr: "unexpected EOF"},
		{name: "wrong type", input: []byte{5}, target: &Event{}, errStr: "cannot unmarshal positive integer"},
		{name: "non-pointer", input: valid, target: Event{}, errStr: "non-pointer"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorContains(t, Cbor.Unmarshal(tc.input, tc.target), tc.errStr)
			if tc.name != "non-pointer" {
				require.ErrorContains(t, Cbor.Decode(bytes.NewReader(tc.input), tc.target), tc.errStr)
			}
		})
	}

	_, err = Cbor.Marshal(complex(1, 2))
	require.ErrorContains(t, err, "unsupported type")
}
