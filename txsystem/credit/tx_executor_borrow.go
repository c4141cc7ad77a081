package credit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

func validateAmount(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	return nil
}

// accrueAndUpdate accrues the interest of an existing line before f sees it.
func (m *Module) accrueAndUpdate(subject common.Address, now uint64, f func(line *Line) error) (*Line, error) {
	params, err := m.ledger.Params(false)
	if err != nil {
		return nil, err
	}
	var result Line
	err = m.state.Apply(UpdateLine(subject, func(line *Line) (*Line, error) {
		if line == nil {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, subject)
		}
		if line.Tier.Valid() {
			Accrue(line, now, params.APRBps[line.Tier.Index()])
		}
		if err := f(line); err != nil {
			return nil, err
		}
		result = *line
		return line, nil
	}))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *Module) executeBorrowTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	subject := exeCtx.Caller()
	savepoint := m.state.Savepoint()
	line, err := m.accrueAndUpdate(subject, exeCtx.Now(), func(line *Line) error {
		if line.Debt > line.Limit || attr.Amount > line.Limit-line.Debt {
			return fmt.Errorf("%w: debt %d, limit %d, requested %d", ErrExceedsLimit, line.Debt, line.Limit, attr.Amount)
		}
		line.Debt += attr.Amount
		return nil
	})
	if err == nil {
		err = m.state.Apply(RemoveLiquidity(attr.Amount), bank.Credit(subject, attr.Amount))
	}
	if err != nil {
		m.state.RollbackToSavepoint(savepoint)
		return nil, fmt.Errorf("borrow: %w", err)
	}
	m.state.ReleaseToSavepoint(savepoint)
	exeCtx.EmitEvent(types.NewEvent(EventBorrowed, subject).With("amount", attr.Amount).With("debt", line.Debt))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{LineID(subject), poolUnitID, bank.AccountID(subject)}}, nil
}

func (m *Module) executeRepayTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	subject := exeCtx.Caller()
	var repaid uint64
	savepoint := m.state.Savepoint()
	line, err := m.accrueAndUpdate(subject, exeCtx.Now(), func(line *Line) error {
		if line.Debt == 0 {
			return ErrNoDebt
		}
		repaid = min(attr.Amount, line.Debt)
		line.Debt -= repaid
		return nil
	})
	if err == nil {
		err = m.state.Apply(bank.Debit(subject, repaid), AddLiquidity(repaid))
	}
	if err != nil {
		m.state.RollbackToSavepoint(savepoint)
		return nil, fmt.Errorf("repay: %w", err)
	}
	m.state.ReleaseToSavepoint(savepoint)
	exeCtx.EmitEvent(types.NewEvent(EventRepaid, subject).With("amount", repaid).With("debt", line.Debt))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{LineID(subject), poolUnitID, bank.AccountID(subject)}}, nil
}

func (m *Module) validateLiquidateTx(tx *types.TransactionOrder, attr *LiquidateAttributes, exeCtx txtypes.ExecutionContext) error {
	return m.registry.Require(access.RoleTreasury, exeCtx.Caller())
}

/*
executeLiquidateTx writes off the debt of a tier D line which has had no
accrual activity for GracePeriod. The record itself is kept.
*/
func (m *Module) executeLiquidateTx(tx *types.TransactionOrder, attr *LiquidateAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	now := exeCtx.Now()
	params, err := m.ledger.Params(false)
	if err != nil {
		return nil, err
	}
	var writtenOff uint64
	err = m.state.Apply(UpdateLine(attr.Subject, func(line *Line) (*Line, error) {
		if line == nil {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, attr.Subject)
		}
		if line.Tier != tier.D {
			return nil, fmt.Errorf("%w: tier is %s", ErrNotLiquidatable, line.Tier)
		}
		if now < line.LastAccrueTime || now-line.LastAccrueTime < GracePeriod {
			return nil, fmt.Errorf("%w: grace period has not passed, last activity %d", ErrNotLiquidatable, line.LastAccrueTime)
		}
		Accrue(line, now, params.APRBps[line.Tier.Index()])
		writtenOff = line.Debt
		line.Debt = 0
		return line, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("liquidate: %w", err)
	}
	m.log.Info().Str("subject", attr.Subject.Hex()).Uint64("written_off", writtenOff).Msg("credit line liquidated")
	exeCtx.EmitEvent(types.NewEvent(EventLiquidated, attr.Subject).With("amount", writtenOff))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{LineID(attr.Subject)}}, nil
}
