package gas

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
)

// TierReader returns the reputation tier of the subject.
type TierReader interface {
	Tier(subject common.Address, committed bool) tier.Tier
}

type Ledger struct {
	state *state.State
	tiers TierReader
}

func NewLedger(s *state.State, tiers TierReader) *Ledger {
	return &Ledger{state: s, tiers: tiers}
}

// Allowance returns the stored allowance record, zero record when the subject
// has never been sponsored. The daily reset is not applied.
func (l *Ledger) Allowance(subject common.Address, committed bool) (*Allowance, error) {
	u, err := l.state.GetUnit(AllowanceID(subject), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Allowance{}, nil
		}
		return nil, err
	}
	a, ok := u.(*Allowance)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return a, nil
}

// RemainingAllowance returns what can still be refunded to the subject on
// the day of "now". Zero for tiers which are not eligible.
func (l *Ledger) RemainingAllowance(subject common.Address, now uint64, committed bool) (uint64, error) {
	t := l.tiers.Tier(subject, committed)
	if !Eligible(t) {
		return 0, nil
	}
	params, err := l.Params(committed)
	if err != nil {
		return 0, err
	}
	a, err := l.Allowance(subject, committed)
	if err != nil {
		return 0, err
	}
	return a.Remaining(params.DailyAllowance[t.Index()], now), nil
}

func (l *Ledger) Pool(committed bool) (*Pool, error) {
	u, err := l.state.GetUnit(poolUnitID, committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Pool{}, nil
		}
		return nil, err
	}
	p, ok := u.(*Pool)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return p, nil
}

// Params returns the daily allowances, DefaultParams when not set.
func (l *Ledger) Params(committed bool) (*Params, error) {
	u, err := l.state.GetUnit(paramsUnitID, committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return DefaultParams(), nil
		}
		return nil, err
	}
	p, ok := u.(*Params)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return p, nil
}

// Spend resets the daily usage if needed and records "amount" as used.
func Spend(subject common.Address, amount, now uint64) state.Action {
	return func(s state.UnitsWriter) error {
		id := AllowanceID(subject)
		a := &Allowance{}
		u, err := s.Get(id)
		exists := err == nil
		switch {
		case exists:
			var ok bool
			if a, ok = u.Copy().(*Allowance); !ok {
				return fmt.Errorf("invalid unit data type %T", u)
			}
		case !errors.Is(err, state.ErrUnitNotFound):
			return err
		}
		a.Reset(now)
		a.UsedToday += amount
		if a.TotalSpent > math.MaxUint64-amount {
			a.TotalSpent = math.MaxUint64
		} else {
			a.TotalSpent += amount
		}
		if exists {
			return s.Update(id, a)
		}
		return s.Add(id, a)
	}
}

// AddToPool increases the sponsor pool balance.
func AddToPool(amount uint64) state.Action {
	return updatePool(func(p *Pool) error {
		if p.Balance > math.MaxUint64-amount {
			return errors.New("sponsor pool overflow")
		}
		p.Balance += amount
		return nil
	})
}

// TakeFromPool decreases the sponsor pool balance.
func TakeFromPool(amount uint64) state.Action {
	return updatePool(func(p *Pool) error {
		if p.Balance < amount {
			return fmt.Errorf("%w: pool has %d, required %d", ErrInsufficientSponsorBalance, p.Balance, amount)
		}
		p.Balance -= amount
		return nil
	})
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
