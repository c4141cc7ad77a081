// Package admin administers the access registry: roles, the validator set
// and the attestation signer threshold. Every operation requires the admin
// role.
package admin

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

var _ txtypes.Module = (*Module)(nil)

type Module struct {
	state    *state.State
	registry *access.Registry
	log      *zerolog.Logger
}

func NewModule(s *state.State, registry *access.Registry, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if registry == nil {
		return nil, errors.New("access registry is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Module{state: s, registry: registry, log: logger.Module(log, "admin")}, nil
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeGrantRole:       txtypes.NewTxHandler[RoleAttributes](m.validateRoleTx, m.executeGrantRoleTx),
		PayloadTypeRevokeRole:      txtypes.NewTxHandler[RoleAttributes](m.validateRoleTx, m.executeRevokeRoleTx),
		PayloadTypeAddValidator:    txtypes.NewTxHandler[ValidatorAttributes](m.validateValidatorTx, m.executeAddValidatorTx),
		PayloadTypeRemoveValidator: txtypes.NewTxHandler[ValidatorAttributes](m.validateValidatorTx, m.executeRemoveValidatorTx),
		PayloadTypeSetMinSigners:   txtypes.NewTxHandler[SetMinSignersAttributes](m.validateSetMinSignersTx, m.executeSetMinSignersTx),
	}
}

func (m *Module) requireAdmin(exeCtx txtypes.ExecutionContext) error {
	return m.registry.Require(access.RoleAdmin, exeCtx.Caller())
}

func (m *Module) validateRoleTx(tx *types.TransactionOrder, attr *RoleAttributes, exeCtx txtypes.ExecutionContext) error {
	if !attr.Role.Valid() {
		return fmt.Errorf("%w: %d", access.ErrInvalidRole, attr.Role)
	}
	return m.requireAdmin(exeCtx)
}

func (m *Module) executeGrantRoleTx(tx *types.TransactionOrder, attr *RoleAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(access.GrantRole(attr.Role, attr.Account, exeCtx.Now())); err != nil {
		return nil, fmt.Errorf("grant role: %w", err)
	}
	m.log.Info().Str("role", attr.Role.String()).Str("account", attr.Account.Hex()).Msg("role granted")
	exeCtx.EmitEvent(roleEvent(EventRoleGranted, attr))
	if attr.Role == access.RoleValidator {
		exeCtx.EmitEvent(types.NewEvent(EventValidatorAdded, attr.Account))
	}
	return &types.ServerMetadata{TargetUnits: []types.UnitID{access.MembershipUnitID(attr.Role, attr.Account), access.ConfigUnitID()}}, nil
}

func (m *Module) executeRevokeRoleTx(tx *types.TransactionOrder, attr *RoleAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(access.RevokeRole(attr.Role, attr.Account)); err != nil {
		return nil, fmt.Errorf("revoke role: %w", err)
	}
	m.log.Info().Str("role", attr.Role.String()).Str("account", attr.Account.Hex()).Msg("role revoked")
	exeCtx.EmitEvent(roleEvent(EventRoleRevoked, attr))
	if attr.Role == access.RoleValidator {
		exeCtx.EmitEvent(types.NewEvent(EventValidatorRemoved, attr.Account))
	}
	return &types.ServerMetadata{TargetUnits: []types.UnitID{access.MembershipUnitID(attr.Role, attr.Account), access.ConfigUnitID()}}, nil
}

func (m *Module) validateValidatorTx(tx *types.TransactionOrder, attr *ValidatorAttributes, exeCtx txtypes.ExecutionContext) error {
	return m.requireAdmin(exeCtx)
}

func (m *Module) executeAddValidatorTx(tx *types.TransactionOrder, attr *ValidatorAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(access.GrantRole(access.RoleValidator, attr.Validator, exeCtx.Now())); err != nil {
		return nil, fmt.Errorf("add validator: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventValidatorAdded, attr.Validator))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{access.MembershipUnitID(access.RoleValidator, attr.Validator), access.ConfigUnitID()}}, nil
}

func (m *Module) executeRemoveValidatorTx(tx *types.TransactionOrder, attr *ValidatorAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(access.RevokeRole(access.RoleValidator, attr.Validator)); err != nil {
		return nil, fmt.Errorf("remove validator: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventValidatorRemoved, attr.Validator))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{access.MembershipUnitID(access.RoleValidator, attr.Validator), access.ConfigUnitID()}}, nil
}

func (m *Module) validateSetMinSignersTx(tx *types.TransactionOrder, attr *SetMinSignersAttributes, exeCtx txtypes.ExecutionContext) error {
	return m.requireAdmin(exeCtx)
}

func (m *Module) executeSetMinSignersTx(tx *types.TransactionOrder, attr *SetMinSignersAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(access.SetMinSigners(attr.MinSigners)); err != nil {
		return nil, fmt.Errorf("set min signers: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventMinSignersSet, exeCtx.Caller()).With("minSigners", attr.MinSigners))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{access.ConfigUnitID()}}, nil
}

func roleEvent(typ types.EventType, attr *RoleAttributes) *types.Event {
	return types.NewEvent(typ, attr.Account).With("role", uint64(attr.Role))
}
