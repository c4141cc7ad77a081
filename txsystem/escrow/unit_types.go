package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

const UnitTypeCommit byte = 0x60

const (
	StatusCommitted Status = iota + 1
	StatusRevealed
	StatusRefunded
)

var commitmentArgs = abi.Arguments{
	{Type: mustNewType("address")},
	{Type: mustNewType("bytes32")},
	{Type: mustNewType("bytes32")},
	{Type: mustNewType("uint256")},
}

type (
	// Status of a commitment. A commitment which is not in the state does
	// not exist, Revealed and Refunded are terminal.
	Status uint8

	Commit struct {
		_        struct{}       `cbor:",toarray"`
		Owner    common.Address `json:"owner"`
		Value    uint64         `json:"value,string"`
		Deadline uint64         `json:"deadline"`
		Status   Status         `json:"status"`
		// Output is the amount reported by the executor on reveal.
		Output uint64 `json:"output,string"`
	}
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRevealed:
		return "revealed"
	case StatusRefunded:
		return "refunded"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CommitmentID is keccak256(abi.encode(owner, paramsHash, salt, deadline)).
func CommitmentID(owner common.Address, paramsHash, salt common.Hash, deadline uint64) (common.Hash, error) {
	packed, err := commitmentArgs.Pack(owner, [32]byte(paramsHash), [32]byte(salt), new(big.Int).SetUint64(deadline))
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding commitment: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

func CommitUnitID(id common.Hash) types.UnitID {
	return types.NewUnitID(UnitTypeCommit, id.Bytes())
}

func (c *Commit) Copy() state.UnitData {
	cp := *c
	return &cp
}

func NewUnitData(id types.UnitID) (state.UnitData, error) {
	if id.TypePart() == UnitTypeCommit {
		return &Commit{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Errorf("creating abi type %q: %w", t, err))
	}
	return typ
}
