package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	TxStatusFailed     TxStatus = 0
	TxStatusSuccessful TxStatus = 1
)

type (
	TxStatus uint64

	TransactionOrder struct {
		_         struct{} `cbor:",toarray"`
		Payload   *Payload
		AuthProof []byte
	}

	Payload struct {
		_              struct{} `cbor:",toarray"`
		Type           string
		UnitID         UnitID
		Attributes     RawCBOR
		ClientMetadata *ClientMetadata
	}

	ClientMetadata struct {
		_ struct{} `cbor:",toarray"`
		// Timeout is unix time in seconds after which the order must not be executed, 0 means no timeout.
		Timeout uint64
		// Nonce must match the sender account nonce.
		Nonce uint64
	}

	ServerMetadata struct {
		_                struct{} `cbor:",toarray"`
		TargetUnits      []UnitID
		SuccessIndicator TxStatus
		Events           []*Event
		ExecutedAt       uint64
	}

	TransactionRecord struct {
		_                struct{} `cbor:",toarray"`
		TransactionOrder *TransactionOrder
		ServerMetadata   *ServerMetadata
	}

	ProofGenerator func(bytesToSign []byte) (proof []byte, err error)
)

var ErrPayloadIsNil = errors.New("payload is nil")

func (t *TransactionOrder) PayloadBytes() ([]byte, error) {
	if t == nil || t.Payload == nil {
		return nil, ErrPayloadIsNil
	}
	return t.Payload.Bytes()
}

func (t *TransactionOrder) UnmarshalAttributes(v any) error {
	if t == nil {
		return errors.New("transaction order is nil")
	}
	return t.Payload.UnmarshalAttributes(v)
}

func (t *TransactionOrder) UnitID() UnitID {
	if t.Payload == nil {
		return nil
	}
	return t.Payload.UnitID
}

func (t *TransactionOrder) Timeout() uint64 {
	if t.Payload == nil || t.Payload.ClientMetadata == nil {
		return 0
	}
	return t.Payload.ClientMetadata.Timeout
}

func (t *TransactionOrder) Nonce() uint64 {
	if t.Payload == nil || t.Payload.ClientMetadata == nil {
		return 0
	}
	return t.Payload.ClientMetadata.Nonce
}

func (t *TransactionOrder) PayloadType() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Type
}

// Hash returns keccak256 hash of the CBOR encoded transaction order.
func (t *TransactionOrder) Hash() (common.Hash, error) {
	bytes, err := Cbor.Marshal(t)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding transaction order: %w", err)
	}
	return crypto.Keccak256Hash(bytes), nil
}

// SigHash returns the digest the sender signs, keccak256 of the CBOR encoded payload.
func (t *TransactionOrder) SigHash() (common.Hash, error) {
	data, err := t.PayloadBytes()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

/*
SetAuthProof assigns the bytes returned by the function provided as argument to
the AuthProof field unless the function (or reading data to be signed by that
function) returned error.
*/
func (t *TransactionOrder) SetAuthProof(proofer ProofGenerator) error {
	h, err := t.SigHash()
	if err != nil {
		return fmt.Errorf("reading payload bytes to sign: %w", err)
	}
	if t.AuthProof, err = proofer(h.Bytes()); err != nil {
		return fmt.Errorf("generating auth proof: %w", err)
	}
	return nil
}

// Sign signs the payload with the key and assigns the signature as AuthProof.
func (t *TransactionOrder) Sign(key *ecdsa.PrivateKey) error {
	return t.SetAuthProof(func(digest []byte) ([]byte, error) {
		return crypto.Sign(digest, key)
	})
}

// Sender recovers the address which signed the payload.
func (t *TransactionOrder) Sender() (common.Address, error) {
	h, err := t.SigHash()
	if err != nil {
		return common.Address{}, err
	}
	if len(t.AuthProof) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid auth proof length %d", len(t.AuthProof))
	}
	pub, err := crypto.SigToPub(h.Bytes(), t.AuthProof)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering sender: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

/*
SetAttributes serializes "attr" and assigns the result to payload's Attributes field.
The "attr" is expected to be one of the transaction attribute structs but there is
no validation!
The Payload.UnmarshalAttributes can be used to decode the attributes.
*/
func (p *Payload) SetAttributes(attr any) error {
	bytes, err := Cbor.Marshal(attr)
	if err != nil {
		return fmt.Errorf("marshaling %T as tx attributes: %w", attr, err)
	}
	p.Attributes = bytes
	return nil
}

func (p *Payload) UnmarshalAttributes(v any) error {
	if p == nil {
		return ErrPayloadIsNil
	}
	return Cbor.Unmarshal(p.Attributes, v)
}

func (p *Payload) Bytes() ([]byte, error) {
	return Cbor.Marshal(p)
}

func (t *TransactionRecord) Hash() (common.Hash, error) {
	return t.TransactionOrder.Hash()
}

func (sm *ServerMetadata) GetEvents() []*Event {
	if sm == nil {
		return nil
	}
	return sm.Events
}
