package credit

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
)

// UpdateLine applies f to a copy of the subject's credit line, when the
// line does not exist f receives nil and must return the new line.
func UpdateLine(subject common.Address, f func(line *Line) (*Line, error)) state.Action {
	return func(s state.UnitsWriter) error {
		id := LineID(subject)
		u, err := s.Get(id)
		if err != nil {
			if !errors.Is(err, state.ErrUnitNotFound) {
				return err
			}
			line, err := f(nil)
			if err != nil {
				return err
			}
			return s.Add(id, line)
		}
		line, ok := u.Copy().(*Line)
		if !ok {
			return fmt.Errorf("invalid unit data type %T", u)
		}
		if line, err = f(line); err != nil {
			return err
		}
		return s.Update(id, line)
	}
}

// AddLiquidity increases the pool liquidity.
func AddLiquidity(amount uint64) state.Action {
	return updatePool(func(p *Pool) error {
		if p.Liquidity > math.MaxUint64-amount {
			return errors.New("pool liquidity overflow")
		}
		p.Liquidity += amount
		return nil
	})
}

// RemoveLiquidity decreases the pool liquidity.
func RemoveLiquidity(amount uint64) state.Action {
	return updatePool(func(p *Pool) error {
		if p.Liquidity < amount {
			return fmt.Errorf("%w: pool has %d, required %d", ErrInsufficientLiquidity, p.Liquidity, amount)
		}
		p.Liquidity -= amount
		return nil
	})
}

// SetParams replaces the credit parameters.
func SetParams(p *Params) state.Action {
	return func(s state.UnitsWriter) error {
		if err := p.IsValid(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		return state.SetUnit(paramsUnitID, p)(s)
	}
}

func updatePool(f func(p *Pool) error) state.Action {
	return func(s state.UnitsWriter) error {
		u, err := s.Get(poolUnitID)
		if err != nil {
			if !errors.Is(err, state.ErrUnitNotFound) {
				return err
			}
			p := &Pool{}
			if err := f(p); err != nil {
				return err
			}
			return s.Add(poolUnitID, p)
		}
		p, ok := u.Copy().(*Pool)
		if !ok {
			return fmt.Errorf("invalid unit data type %T", u)
		}
		if err := f(p); err != nil {
			return err
		}
		return s.Update(poolUnitID, p)
	}
}
