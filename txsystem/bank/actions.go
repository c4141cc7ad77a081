package bank

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Credit adds amount to the account balance, the account is created when missing.
func Credit(addr common.Address, amount uint64) state.Action {
	return updateAccount(addr, func(acc *Account) error {
		if acc.Balance > math.MaxUint64-amount {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, addr)
		}
		acc.Balance += amount
		return nil
	})
}

// Debit subtracts amount from the account balance.
func Debit(addr common.Address, amount uint64) state.Action {
	return updateAccount(addr, func(acc *Account) error {
		if acc.Balance < amount {
			return fmt.Errorf("%w: %s has %d, required %d", ErrInsufficientBalance, addr, acc.Balance, amount)
		}
		acc.Balance -= amount
		return nil
	})
}

// Transfer moves amount between two accounts.
func Transfer(from, to common.Address, amount uint64) state.Action {
	return func(s state.UnitsWriter) error {
		if err := Debit(from, amount)(s); err != nil {
			return err
		}
		return Credit(to, amount)(s)
	}
}

func IncrNonce(addr common.Address) state.Action {
	return updateAccount(addr, func(acc *Account) error {
		acc.Nonce++
		return nil
	})
}

func updateAccount(addr common.Address, f func(acc *Account) error) state.Action {
	return func(s state.UnitsWriter) error {
		id := AccountID(addr)
		u, err := s.Get(id)
		if err != nil {
			if !errors.Is(err, state.ErrUnitNotFound) {
				return err
			}
			acc := &Account{}
			if err := f(acc); err != nil {
				return err
			}
			return s.Add(id, acc)
		}
		acc, ok := u.Copy().(*Account)
		if !ok {
			return fmt.Errorf("invalid unit data type %T", u)
		}
		if err := f(acc); err != nil {
			return err
		}
		return s.Update(id, acc)
	}
}

func updateJointAccount(id types.UnitID, f func(acc *JointAccount) error) state.Action {
	return func(s state.UnitsWriter) error {
		u, err := s.Get(id)
		if err != nil {
			return fmt.Errorf("joint account %s: %w", id, err)
		}
		acc, ok := u.Copy().(*JointAccount)
		if !ok {
			return fmt.Errorf("invalid unit data type %T", u)
		}
		if err := f(acc); err != nil {
			return err
		}
		return s.Update(id, acc)
	}
}
