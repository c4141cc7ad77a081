package credit

import (
	"fmt"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

func (m *Module) validateSetCreditParamsTx(tx *types.TransactionOrder, attr *SetCreditParamsAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Params == nil {
		return fmt.Errorf("%w: params are nil", ErrInvalidParams)
	}
	if err := attr.Params.IsValid(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return m.registry.Require(access.RoleAdmin, exeCtx.Caller())
}

func (m *Module) executeSetCreditParamsTx(tx *types.TransactionOrder, attr *SetCreditParamsAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(SetParams(attr.Params)); err != nil {
		return nil, fmt.Errorf("set credit params: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventCreditParamsSet, exeCtx.Caller()).With("capBps", attr.Params.CapBps))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{paramsUnitID}}, nil
}

func (m *Module) validateTreasuryAmount(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	return m.registry.Require(access.RoleTreasury, exeCtx.Caller())
}

func (m *Module) executeDepositLiquidityTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller := exeCtx.Caller()
	if err := m.state.Apply(bank.Debit(caller, attr.Amount), AddLiquidity(attr.Amount)); err != nil {
		return nil, fmt.Errorf("deposit liquidity: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventLiquidityDeposited, caller).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{poolUnitID, bank.AccountID(caller)}}, nil
}

func (m *Module) executeWithdrawLiquidityTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller := exeCtx.Caller()
	if err := m.state.Apply(RemoveLiquidity(attr.Amount), bank.Credit(caller, attr.Amount)); err != nil {
		return nil, fmt.Errorf("withdraw liquidity: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventLiquidityWithdrawn, caller).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{poolUnitID, bank.AccountID(caller)}}, nil
}
