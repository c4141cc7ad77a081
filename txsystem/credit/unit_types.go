package credit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/types"
)

const (
	UnitTypeLine   byte = 0x30
	UnitTypePool   byte = 0x31
	UnitTypeParams byte = 0x32
)

var (
	poolUnitID   = types.NewUnitID(UnitTypePool, nil)
	paramsUnitID = types.NewUnitID(UnitTypeParams, nil)
)

type (
	// Line is the credit line of a subject. Debt may grow over the limit
	// through accrual but a borrow never leaves it over the limit.
	Line struct {
		_              struct{}  `cbor:",toarray"`
		Limit          uint64    `json:"limit,string"`
		Debt           uint64    `json:"debt,string"`
		LastAccrueTime uint64    `json:"lastAccrueTime"`
		Tier           tier.Tier `json:"tier"`
	}

	// Pool holds the liquidity lent out through credit lines.
	Pool struct {
		_         struct{} `cbor:",toarray"`
		Liquidity uint64   `json:"liquidity,string"`
	}

	// Params are the per tier economics of credit lines, tables are indexed by tier.Index.
	Params struct {
		_ struct{} `cbor:",toarray"`
		// APRBps is the simple annual interest rate in basis points.
		APRBps [tier.Count]uint64 `json:"aprBps" yaml:"apr-bps"`
		// LimitMultiplierPct scales the requested limit hint, 100 keeps it as is.
		LimitMultiplierPct [tier.Count]uint64 `json:"limitMultiplierPct" yaml:"limit-multiplier-pct"`
		// CapBps caps a single limit to a fraction of the pool liquidity.
		CapBps uint64 `json:"capBps" yaml:"cap-bps"`
	}
)

// DefaultParams are used until the admin sets the parameters.
func DefaultParams() *Params {
	return &Params{
		APRBps:             [tier.Count]uint64{500, 800, 1200, 2000},
		LimitMultiplierPct: [tier.Count]uint64{400, 300, 200, 100},
		CapBps:             500,
	}
}

func (p *Params) IsValid() error {
	if p.CapBps == 0 || p.CapBps > bpsDenominator {
		return fmt.Errorf("cap must be in range 1..%d bps, got %d", bpsDenominator, p.CapBps)
	}
	return nil
}

func LineID(subject common.Address) types.UnitID {
	return types.AddressUnitID(UnitTypeLine, subject)
}

func PoolID() types.UnitID { return poolUnitID }

func ParamsID() types.UnitID { return paramsUnitID }

func (l *Line) Copy() state.UnitData {
	cp := *l
	return &cp
}

func (p *Pool) Copy() state.UnitData {
	return &Pool{Liquidity: p.Liquidity}
}

func (p *Params) Copy() state.UnitData {
	cp := *p
	return &cp
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case UnitTypeLine:
		return &Line{}, nil
	case UnitTypePool:
		return &Pool{}, nil
	case UnitTypeParams:
		return &Params{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
