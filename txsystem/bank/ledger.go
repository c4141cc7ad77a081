package bank

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

// Ledger reads accounts from the state and tracks transaction nonces.
type Ledger struct {
	state *state.State
}

func NewLedger(s *state.State) *Ledger {
	return &Ledger{state: s}
}

// Account returns the account of the address, zero account when it doesn't exist.
func (l *Ledger) Account(addr common.Address, committed bool) (*Account, error) {
	u, err := l.state.GetUnit(AccountID(addr), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Account{}, nil
		}
		return nil, err
	}
	acc, ok := u.(*Account)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return acc, nil
}

func (l *Ledger) Balance(addr common.Address) uint64 {
	acc, err := l.Account(addr, false)
	if err != nil {
		return 0
	}
	return acc.Balance
}

func (l *Ledger) Nonce(addr common.Address) uint64 {
	acc, err := l.Account(addr, false)
	if err != nil {
		return 0
	}
	return acc.Nonce
}

func (l *Ledger) IncrementNonce(addr common.Address) state.Action {
	return IncrNonce(addr)
}

func (l *Ledger) JointAccount(id types.UnitID, committed bool) (*JointAccount, error) {
	u, err := l.state.GetUnit(id, committed)
	if err != nil {
		return nil, err
	}
	acc, ok := u.(*JointAccount)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return acc, nil
}
