package transaction

import (
	"crypto/ecdsa"
	"testing"

	"github.com/stretchr/testify/require"

	test "github.com/riskgate-org/riskgate/testutils"
	"github.com/riskgate-org/riskgate/types"
)

func defaultTx() *types.TransactionOrder {
	return &types.TransactionOrder{
		Payload: &types.Payload{
			Type:           "test",
			UnitID:         test.RandomBytes(21),
			ClientMetadata: &types.ClientMetadata{},
		},
	}
}

type Option func(*types.TransactionOrder) error

func WithUnitID(id []byte) Option {
	return func(tx *types.TransactionOrder) error {
		tx.Payload.UnitID = id
		return nil
	}
}

func WithPayloadType(t string) Option {
	return func(tx *types.TransactionOrder) error {
		tx.Payload.Type = t
		return nil
	}
}

func WithTimeout(timeout uint64) Option {
	return func(tx *types.TransactionOrder) error {
		tx.Payload.ClientMetadata.Timeout = timeout
		return nil
	}
}

func WithNonce(nonce uint64) Option {
	return func(tx *types.TransactionOrder) error {
		tx.Payload.ClientMetadata.Nonce = nonce
		return nil
	}
}

func WithAttributes(attr any) Option {
	return func(tx *types.TransactionOrder) error {
		return tx.Payload.SetAttributes(attr)
	}
}

func WithAuthProof(proof []byte) Option {
	return func(tx *types.TransactionOrder) error {
		tx.AuthProof = proof
		return nil
	}
}

// WithSigner signs the payload, must be the last option.
func WithSigner(key *ecdsa.PrivateKey) Option {
	return func(tx *types.TransactionOrder) error {
		return tx.Sign(key)
	}
}

func NewTransactionOrder(t testing.TB, options ...Option) *types.TransactionOrder {
	tx := defaultTx()
	for _, o := range options {
		require.NoError(t, o(tx))
	}
	return tx
}

// NewSigned creates transaction order of given type signed by the key.
func NewSigned(t testing.TB, key *ecdsa.PrivateKey, txType string, nonce uint64, attr any, options ...Option) *types.TransactionOrder {
	opts := append([]Option{WithPayloadType(txType), WithNonce(nonce), WithAttributes(attr)}, options...)
	opts = append(opts, WithSigner(key))
	return NewTransactionOrder(t, opts...)
}
