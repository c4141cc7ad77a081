package bank

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

const (
	UnitTypeAccount      byte = 0x10
	UnitTypeJointAccount byte = 0x11
)

type (
	// Account holds native value balance and the transaction nonce of an address.
	Account struct {
		_       struct{} `cbor:",toarray"`
		Balance uint64   `json:"balance,string"`
		Nonce   uint64   `json:"nonce,string"`
	}

	// JointAccount is controlled by two owners, value can be withdrawn only
	// when both owners sign the same withdrawal message.
	JointAccount struct {
		_       struct{} `cbor:",toarray"`
		Owners  Pair     `json:"owners"`
		Balance uint64   `json:"balance,string"`
		Nonce   uint64   `json:"nonce,string"`
	}
)

func AccountID(addr common.Address) types.UnitID {
	return types.AddressUnitID(UnitTypeAccount, addr)
}

// JointAccountID is derived from the ordered owner pair.
func JointAccountID(p Pair) types.UnitID {
	return types.NewUnitID(UnitTypeJointAccount, JointAccountHash(p).Bytes())
}

func JointAccountHash(p Pair) common.Hash {
	return crypto.Keccak256Hash(p.First.Bytes(), p.Second.Bytes())
}

func (a *Account) Copy() state.UnitData {
	return &Account{Balance: a.Balance, Nonce: a.Nonce}
}

func (a *JointAccount) Copy() state.UnitData {
	return &JointAccount{Owners: a.Owners, Balance: a.Balance, Nonce: a.Nonce}
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case UnitTypeAccount:
		return &Account{}, nil
	case UnitTypeJointAccount:
		return &JointAccount{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
