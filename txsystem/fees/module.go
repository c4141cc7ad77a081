// Package fees implements the fee discount engine: a base fee reduced by the
// reputation tier discount and a volume bonus.
package fees

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeSetFeeParams = "setFeeParams"
	PayloadTypeUpdateVolume = "updateVolume"

	EventFeeParamsSet  types.EventType = "FeeParamsSet"
	EventVolumeUpdated types.EventType = "VolumeUpdated"
)

var ErrInvalidParams = errors.New("invalid fee parameters")

var _ txtypes.Module = (*Module)(nil)

type (
	SetFeeParamsAttributes struct {
		_      struct{} `cbor:",toarray"`
		Params *Params
	}

	UpdateVolumeAttributes struct {
		_       struct{} `cbor:",toarray"`
		Subject common.Address
		Volume  uint64
	}

	Module struct {
		state    *state.State
		engine   *Engine
		registry *access.Registry
		log      *zerolog.Logger
	}
)

func NewModule(s *state.State, registry *access.Registry, tiers TierReader, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if registry == nil {
		return nil, errors.New("access registry is nil")
	}
	if tiers == nil {
		return nil, errors.New("tier reader is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Module{
		state:    s,
		engine:   NewEngine(s, tiers),
		registry: registry,
		log:      logger.Module(log, "fees"),
	}, nil
}

func (m *Module) Engine() *Engine {
	return m.engine
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeSetFeeParams: txtypes.NewTxHandler[SetFeeParamsAttributes](m.validateSetFeeParamsTx, m.executeSetFeeParamsTx),
		PayloadTypeUpdateVolume: txtypes.NewTxHandler[UpdateVolumeAttributes](m.validateUpdateVolumeTx, m.executeUpdateVolumeTx),
	}
}

func (m *Module) validateSetFeeParamsTx(tx *types.TransactionOrder, attr *SetFeeParamsAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Params == nil {
		return fmt.Errorf("%w: params are nil", ErrInvalidParams)
	}
	if err := attr.Params.IsValid(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return m.registry.Require(access.RoleAdmin, exeCtx.Caller())
}

func (m *Module) executeSetFeeParamsTx(tx *types.TransactionOrder, attr *SetFeeParamsAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(state.SetUnit(paramsUnitID, attr.Params)); err != nil {
		return nil, fmt.Errorf("set fee params: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventFeeParamsSet, exeCtx.Caller()).With("baseFeeBps", attr.Params.BaseFeeBps))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{paramsUnitID}}, nil
}

func (m *Module) validateUpdateVolumeTx(tx *types.TransactionOrder, attr *UpdateVolumeAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Subject == (common.Address{}) {
		return errors.New("subject is zero address")
	}
	return m.registry.Require(access.RoleIssuer, exeCtx.Caller())
}

func (m *Module) executeUpdateVolumeTx(tx *types.TransactionOrder, attr *UpdateVolumeAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	id := VolumeID(attr.Subject)
	if err := m.state.Apply(state.SetUnit(id, &Volume{Volume: attr.Volume, UpdatedAt: exeCtx.Now()})); err != nil {
		return nil, fmt.Errorf("update volume: %w", err)
	}
	m.log.Debug().EmbedObject(logger.UnitID(id)).Uint64("volume", attr.Volume).Msg("volume updated")
	exeCtx.EmitEvent(types.NewEvent(EventVolumeUpdated, attr.Subject).With("volume", attr.Volume))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{id}}, nil
}
