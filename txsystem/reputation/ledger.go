package reputation

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
)

// Ledger is the read side of the reputation records.
type Ledger struct {
	state *state.State
}

func NewLedger(s *state.State) *Ledger {
	return &Ledger{state: s}
}

// Record returns the grade of the subject, found is false for ungraded subjects.
func (l *Ledger) Record(subject common.Address, committed bool) (rec *Record, found bool, err error) {
	u, err := l.state.GetUnit(RecordID(subject), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rec, ok := u.(*Record)
	if !ok {
		return nil, false, fmt.Errorf("invalid unit data type %T", u)
	}
	return rec, true, nil
}

// Tier returns the tier of the subject, tier.None when ungraded. Queries
// outside of transaction execution must read the committed state.
func (l *Ledger) Tier(subject common.Address, committed bool) tier.Tier {
	rec, found, err := l.Record(subject, committed)
	if err != nil || !found {
		return tier.None
	}
	return rec.Tier
}

// SetRecord overwrites the grade of the subject.
func SetRecord(subject common.Address, rec *Record) state.Action {
	return state.SetUnit(RecordID(subject), rec)
}
