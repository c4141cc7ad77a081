package credit

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
)

// Ledger reads credit lines, the pool and the parameters from the state.
type Ledger struct {
	state *state.State
}

func NewLedger(s *state.State) *Ledger {
	return &Ledger{state: s}
}

// Line returns the credit line of the subject, found is false when the
// subject has never opened one.
func (l *Ledger) Line(subject common.Address, committed bool) (line *Line, found bool, err error) {
	u, err := l.state.GetUnit(LineID(subject), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	line, ok := u.(*Line)
	if !ok {
		return nil, false, fmt.Errorf("invalid unit data type %T", u)
	}
	return line, true, nil
}

// Preview returns the committed line with the interest accrued until "now",
// the state is not modified.
func (l *Ledger) Preview(subject common.Address, now uint64) (*Line, bool, error) {
	line, found, err := l.Line(subject, true)
	if err != nil || !found {
		return nil, found, err
	}
	params, err := l.Params(true)
	if err != nil {
		return nil, false, err
	}
	preview := line.Copy().(*Line)
	if preview.Tier.Valid() {
		Accrue(preview, now, params.APRBps[preview.Tier.Index()])
	}
	return preview, true, nil
}

func (l *Ledger) Pool(committed bool) (*Pool, error) {
	u, err := l.state.GetUnit(poolUnitID, committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Pool{}, nil
		}
		return nil, err
	}
	pool, ok := u.(*Pool)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return pool, nil
}

// Params returns the credit parameters, DefaultParams when not set.
func (l *Ledger) Params(committed bool) (*Params, error) {
	u, err := l.state.GetUnit(paramsUnitID, committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return DefaultParams(), nil
		}
		return nil, err
	}
	params, ok := u.(*Params)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return params, nil
}
