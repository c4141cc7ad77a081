package gas

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/types"
)

const (
	UnitTypeAllowance byte = 0x50
	UnitTypePool      byte = 0x51
	UnitTypeParams    byte = 0x52

	SecondsPerDay uint64 = 86400
)

var (
	poolUnitID   = types.NewUnitID(UnitTypePool, nil)
	paramsUnitID = types.NewUnitID(UnitTypeParams, nil)
)

type (
	// Allowance tracks the sponsored spending of a subject. UsedToday is
	// reset lazily on the first access of a new day.
	Allowance struct {
		_            struct{} `cbor:",toarray"`
		UsedToday    uint64   `json:"usedToday,string"`
		LastResetDay uint64   `json:"lastResetDay"`
		TotalSpent   uint64   `json:"totalSpent,string"`
	}

	// Pool is the balance refunds are paid from.
	Pool struct {
		_       struct{} `cbor:",toarray"`
		Balance uint64   `json:"balance,string"`
	}

	// Params holds the daily allowance per tier, indexed by tier.Index.
	Params struct {
		_              struct{}           `cbor:",toarray"`
		DailyAllowance [tier.Count]uint64 `json:"dailyAllowance" yaml:"daily-allowance"`
	}
)

func DefaultParams() *Params {
	return &Params{DailyAllowance: [tier.Count]uint64{1_000_000, 500_000, 0, 0}}
}

// Eligible returns true for the tiers which can be sponsored.
func Eligible(t tier.Tier) bool {
	return t == tier.A || t == tier.B
}

// Day returns the day number of the unix time.
func Day(now uint64) uint64 {
	return now / SecondsPerDay
}

// Reset zeroes the daily usage when "now" is on a later day than the last reset.
func (a *Allowance) Reset(now uint64) {
	if day := Day(now); day > a.LastResetDay {
		a.UsedToday = 0
		a.LastResetDay = day
	}
}

// Remaining returns the unused part of the daily allowance "limit" at "now".
// The allowance itself is not modified.
func (a *Allowance) Remaining(limit, now uint64) uint64 {
	cp := *a
	cp.Reset(now)
	if cp.UsedToday >= limit {
		return 0
	}
	return limit - cp.UsedToday
}

func AllowanceID(subject common.Address) types.UnitID {
	return types.AddressUnitID(UnitTypeAllowance, subject)
}

func PoolID() types.UnitID { return poolUnitID }

func ParamsID() types.UnitID { return paramsUnitID }

func (a *Allowance) Copy() state.UnitData {
	cp := *a
	return &cp
}

func (p *Pool) Copy() state.UnitData {
	return &Pool{Balance: p.Balance}
}

func (p *Params) Copy() state.UnitData {
	cp := *p
	return &cp
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case UnitTypeAllowance:
		return &Allowance{}, nil
	case UnitTypePool:
		return &Pool{}, nil
	case UnitTypeParams:
		return &Params{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
