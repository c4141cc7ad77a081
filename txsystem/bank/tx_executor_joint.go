package bank

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

var ErrJointAccountExists = errors.New("joint account already exists")

func (m *Module) validateCreateJointTx(tx *types.TransactionOrder, attr *CreateJointAccountAttributes, exeCtx txtypes.ExecutionContext) error {
	pair, err := NewPair(exeCtx.Caller(), attr.Second)
	if err != nil {
		return err
	}
	if _, err := exeCtx.GetUnit(JointAccountID(pair), false); err == nil {
		return ErrJointAccountExists
	}
	return nil
}

func (m *Module) executeCreateJointTx(tx *types.TransactionOrder, attr *CreateJointAccountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	pair, err := NewPair(exeCtx.Caller(), attr.Second)
	if err != nil {
		return nil, err
	}
	id := JointAccountID(pair)
	if err := m.state.Apply(state.AddUnit(id, &JointAccount{Owners: pair})); err != nil {
		return nil, fmt.Errorf("creating joint account: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventJointAccountCreated, pair.First).WithRef(JointAccountHash(pair)))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{id}}, nil
}

func (m *Module) validateJointDepositTx(tx *types.TransactionOrder, attr *JointDepositAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	return nil
}

func (m *Module) executeJointDepositTx(tx *types.TransactionOrder, attr *JointDepositAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	id := types.NewUnitID(UnitTypeJointAccount, attr.Account.Bytes())
	caller := exeCtx.Caller()
	err := m.state.Apply(
		Debit(caller, attr.Amount),
		updateJointAccount(id, func(acc *JointAccount) error {
			if acc.Balance+attr.Amount < acc.Balance {
				return ErrBalanceOverflow
			}
			acc.Balance += attr.Amount
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("joint deposit: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventJointDeposit, caller).WithRef(attr.Account).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{AccountID(caller), id}}, nil
}

func (m *Module) validateJointWithdrawTx(tx *types.TransactionOrder, attr *JointWithdrawAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	if attr.To == (common.Address{}) {
		return ErrZeroRecipient
	}
	return nil
}

func (m *Module) executeJointWithdrawTx(tx *types.TransactionOrder, attr *JointWithdrawAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	id := types.NewUnitID(UnitTypeJointAccount, attr.Account.Bytes())
	err := m.state.Apply(
		updateJointAccount(id, func(acc *JointAccount) error {
			digest, err := WithdrawalDigest(m.domain, attr.Account, attr.To, attr.Amount, acc.Nonce)
			if err != nil {
				return err
			}
			if err := acc.Owners.VerifyBoth(digest, attr.SigFirst, attr.SigSecond); err != nil {
				return err
			}
			if acc.Balance < attr.Amount {
				return fmt.Errorf("%w: joint account has %d, required %d", ErrInsufficientBalance, acc.Balance, attr.Amount)
			}
			acc.Balance -= attr.Amount
			acc.Nonce++
			return nil
		}),
		Credit(attr.To, attr.Amount),
	)
	if err != nil {
		return nil, fmt.Errorf("joint withdraw: %w", err)
	}
	m.log.Debug().EmbedObject(logger.UnitID(id)).Uint64("amount", attr.Amount).Msg("joint withdrawal")
	exeCtx.EmitEvent(types.NewEvent(EventJointWithdrawal, attr.To).WithRef(attr.Account).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{id, AccountID(attr.To)}}, nil
}
