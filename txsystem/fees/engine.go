package fees

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
)

// TierReader returns the reputation tier of the subject.
type TierReader interface {
	Tier(subject common.Address, committed bool) tier.Tier
}

// Engine computes effective fees from the stored parameters, the subject's
// tier and reported volume. Nothing is cached, every call reads the state.
type Engine struct {
	state *state.State
	tiers TierReader
}

func NewEngine(s *state.State, tiers TierReader) *Engine {
	return &Engine{state: s, tiers: tiers}
}

// EffectiveFee returns the fee of the subject in basis points.
func (e *Engine) EffectiveFee(subject common.Address, committed bool) (uint64, error) {
	params, err := e.Params(committed)
	if err != nil {
		return 0, err
	}
	vol, err := e.Volume(subject, committed)
	if err != nil {
		return 0, err
	}
	return params.EffectiveFee(e.tiers.Tier(subject, committed), vol.Volume), nil
}

// Params returns the fee parameters, DefaultParams when not set.
func (e *Engine) Params(committed bool) (*Params, error) {
	u, err := e.state.GetUnit(paramsUnitID, committed)
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

// Volume returns the reported volume of the subject, zero when never reported.
func (e *Engine) Volume(subject common.Address, committed bool) (*Volume, error) {
	u, err := e.state.GetUnit(VolumeID(subject), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Volume{}, nil
		}
		return nil, err
	}
	v, ok := u.(*Volume)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return v, nil
}
