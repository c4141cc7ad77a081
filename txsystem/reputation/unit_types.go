package reputation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/types"
)

const UnitTypeRecord byte = 0x20

// Record is the grade derived from the last accepted attestation of the subject.
type Record struct {
	_          struct{}    `cbor:",toarray"`
	Tier       tier.Tier   `json:"tier"`
	Score      uint64      `json:"score"`
	SubjectRef common.Hash `json:"subjectRef"`
	Nonce      uint64      `json:"nonce"`
	UpdatedAt  uint64      `json:"updatedAt"`
}

func RecordID(subject common.Address) types.UnitID {
	return types.AddressUnitID(UnitTypeRecord, subject)
}

func (r *Record) Copy() state.UnitData {
	cp := *r
	return &cp
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	if id.TypePart() == UnitTypeRecord {
		return &Record{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
