package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/types"
)

const (
	UnitTypeParams byte = 0x40
	UnitTypeVolume byte = 0x41

	MaxFeeBps uint64 = 10_000
)

var paramsUnitID = types.NewUnitID(UnitTypeParams, nil)

type (
	// Params of the fee discount, all values in basis points except the
	// volume thresholds. Discount tables are indexed by tier.Index.
	Params struct {
		_                struct{}           `cbor:",toarray"`
		BaseFeeBps       uint64             `json:"baseFeeBps" yaml:"base-fee-bps"`
		TierDiscountBps  [tier.Count]uint64 `json:"tierDiscountBps" yaml:"tier-discount-bps"`
		VolumeThresholds [2]uint64          `json:"volumeThresholds" yaml:"volume-thresholds"`
		VolumeBonusBps   [2]uint64          `json:"volumeBonusBps" yaml:"volume-bonus-bps"`
	}

	// Volume is the rolling trading volume of a subject as reported by an issuer.
	Volume struct {
		_         struct{} `cbor:",toarray"`
		Volume    uint64   `json:"volume,string"`
		UpdatedAt uint64   `json:"updatedAt"`
	}
)

func DefaultParams() *Params {
	return &Params{
		BaseFeeBps:       30,
		TierDiscountBps:  [tier.Count]uint64{15, 10, 5, 0},
		VolumeThresholds: [2]uint64{100_000, 1_000_000},
		VolumeBonusBps:   [2]uint64{2, 5},
	}
}

func (p *Params) IsValid() error {
	if p.BaseFeeBps > MaxFeeBps {
		return fmt.Errorf("base fee %d exceeds %d bps", p.BaseFeeBps, MaxFeeBps)
	}
	for _, d := range append(p.TierDiscountBps[:], p.VolumeBonusBps[:]...) {
		if d > MaxFeeBps {
			return fmt.Errorf("discount %d exceeds %d bps", d, MaxFeeBps)
		}
	}
	if p.VolumeThresholds[0] > p.VolumeThresholds[1] {
		return fmt.Errorf("volume thresholds must be ascending, got %v", p.VolumeThresholds)
	}
	return nil
}

// VolumeBonus is the step function of the volume discount.
func (p *Params) VolumeBonus(volume uint64) uint64 {
	switch {
	case volume >= p.VolumeThresholds[1]:
		return p.VolumeBonusBps[1]
	case volume >= p.VolumeThresholds[0]:
		return p.VolumeBonusBps[0]
	default:
		return 0
	}
}

// EffectiveFee returns clamp(base - tierDiscount - volumeBonus, 0, 10000).
// Ungraded subjects get no tier discount.
func (p *Params) EffectiveFee(t tier.Tier, volume uint64) uint64 {
	discount := p.VolumeBonus(volume)
	if t.Valid() {
		discount += p.TierDiscountBps[t.Index()]
	}
	if discount >= p.BaseFeeBps {
		return 0
	}
	return min(p.BaseFeeBps-discount, MaxFeeBps)
}

func ParamsID() types.UnitID { return paramsUnitID }

func VolumeID(subject common.Address) types.UnitID {
	return types.AddressUnitID(UnitTypeVolume, subject)
}

func (p *Params) Copy() state.UnitData {
	cp := *p
	return &cp
}

func (v *Volume) Copy() state.UnitData {
	return &Volume{Volume: v.Volume, UpdatedAt: v.UpdatedAt}
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case UnitTypeParams:
		return &Params{}, nil
	case UnitTypeVolume:
		return &Volume{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
