package node

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/txsystem/fees"
	"github.com/riskgate-org/riskgate/txsystem/gas"
	"github.com/riskgate-org/riskgate/txsystem/reputation"
	"github.com/riskgate-org/riskgate/types"
)

// snapshotCodec compresses serialized state, the encoder and decoder are
// safe for concurrent EncodeAll/DecodeAll calls.
type snapshotCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newSnapshotCodec() (*snapshotCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	return &snapshotCodec{encoder: encoder, decoder: decoder}, nil
}

// encode serializes either the committed or the current state.
func (c *snapshotCodec) encode(s *state.State, committed bool, round uint64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := s.Serialize(buf, committed, round); err != nil {
		return nil, fmt.Errorf("serializing state: %w", err)
	}
	return c.encoder.EncodeAll(buf.Bytes(), nil), nil
}

func (c *snapshotCodec) decode(data []byte) (*state.State, *state.Header, error) {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing state: %w", err)
	}
	return state.NewRecoveredState(bytes.NewReader(raw), newUnitData)
}

func (c *snapshotCodec) close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}

// newUnitData constructs empty unit data of the module owning the unit type.
func newUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case access.UnitTypeRoleMember, access.UnitTypeConfig:
		return access.NewUnitData(id)
	case bank.UnitTypeAccount, bank.UnitTypeJointAccount:
		return bank.NewUnitData(id)
	case reputation.UnitTypeRecord:
		return reputation.NewUnitData(id)
	case credit.UnitTypeLine, credit.UnitTypePool, credit.UnitTypeParams:
		return credit.NewUnitData(id)
	case fees.UnitTypeParams, fees.UnitTypeVolume:
		return fees.NewUnitData(id)
	case gas.UnitTypeAllowance, gas.UnitTypePool, gas.UnitTypeParams:
		return gas.NewUnitData(id)
	case escrow.UnitTypeCommit:
		return escrow.NewUnitData(id)
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}
