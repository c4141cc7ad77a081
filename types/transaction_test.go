package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type testAttributes struct {
	_      struct{} `cbor:",toarray"`
	Amount uint64
	Memo   string
}

func newTestOrder(t *testing.T) *TransactionOrder {
	t.Helper()
	tx := &TransactionOrder{
		Payload: &Payload{
			Type:           "transfer",
			UnitID:         NewUnitID(1, []byte{1, 2, 3}),
			ClientMetadata: &ClientMetadata{Timeout: 100, Nonce: 7},
		},
	}
	require.NoError(t, tx.Payload.SetAttributes(&testAttributes{Amount: 42, Memo: "hello"}))
	return tx
}

func TestTransactionOrder_Getters(t *testing.T) {
	tx := newTestOrder(t)
	require.Equal(t, "transfer", tx.PayloadType())
	require.EqualValues(t, 100, tx.Timeout())
	require.EqualValues(t, 7, tx.Nonce())
	require.Equal(t, NewUnitID(1, []byte{1, 2, 3}), tx.UnitID())

	var attr testAttributes
	require.NoError(t, tx.UnmarshalAttributes(&attr))
	require.EqualValues(t, 42, attr.Amount)
	require.Equal(t, "hello", attr.Memo)

	empty := &TransactionOrder{}
	require.Empty(t, empty.PayloadType())
	require.Zero(t, empty.Timeout())
	require.Zero(t, empty.Nonce())
	require.Nil(t, empty.UnitID())
	require.ErrorIs(t, empty.UnmarshalAttributes(&attr), ErrPayloadIsNil)
}

func TestTransactionOrder_SignAndRecoverSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		tx := newTestOrder(t)
		require.NoError(t, tx.Sign(key))
		require.Len(t, tx.AuthProof, 65)
		sender, err := tx.Sender()
		require.NoError(t, err)
		require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender)
	})

	t.Run("modified payload recovers different sender", func(t *testing.T) {
		tx := newTestOrder(t)
		require.NoError(t, tx.Sign(key))
		tx.Payload.ClientMetadata.Nonce++
		sender, err := tx.Sender()
		if err == nil {
			require.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), sender)
		}
	})

	t.Run("missing proof", func(t *testing.T) {
		tx := newTestOrder(t)
		_, err := tx.Sender()
		require.EqualError(t, err, "invalid auth proof length 0")
	})

	t.Run("missing payload", func(t *testing.T) {
		tx := &TransactionOrder{}
		require.ErrorIs(t, tx.Sign(key), ErrPayloadIsNil)
	})
}

func TestTransactionOrder_Hash(t *testing.T) {
	tx := newTestOrder(t)
	h1, err := tx.Hash()
	require.NoError(t, err)

	buf, err := Cbor.Marshal(tx)
	require.NoError(t, err)
	var decoded TransactionOrder
	require.NoError(t, Cbor.Unmarshal(buf, &decoded))
	h2, err := decoded.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	tx.Payload.Type = "other"
	h3, err := tx.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestEvent_With(t *testing.T) {
	ev := NewEvent("Borrowed", [20]byte{1}).With("amount", 10).With("debt", 20)
	require.Equal(t, map[string]uint64{"amount": 10, "debt": 20}, ev.Fields)
	require.EqualValues(t, "Borrowed", ev.Type)
}

func TestUnitID_Transaction(t *testing.T) {
	id := NewUnitID(3, []byte{0xAA, 0xBB})
	require.True(t, id.HasType(3))
	require.False(t, id.HasType(4))
	require.EqualValues(t, 3, id.TypePart())
	require.Equal(t, "03AABB", id.String())
	require.Zero(t, UnitID(nil).TypePart())
	require.False(t, UnitID(nil).HasType(0))

	text, err := id.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "0x03aabb", string(text))
	var back UnitID
	require.NoError(t, back.UnmarshalText(text))
	require.True(t, id.Eq(back))
}
