package bank

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

var (
	ErrZeroAmount    = errors.New("amount must be greater than zero")
	ErrZeroRecipient = errors.New("recipient is zero address")
)

func (m *Module) validateTransferTx(tx *types.TransactionOrder, attr *TransferAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	if attr.To == (common.Address{}) {
		return ErrZeroRecipient
	}
	return nil
}

func (m *Module) executeTransferTx(tx *types.TransactionOrder, attr *TransferAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	from := exeCtx.Caller()
	if err := m.state.Apply(Transfer(from, attr.To, attr.Amount)); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventTransfer, from).WithRef(common.BytesToHash(attr.To.Bytes())).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{AccountID(from), AccountID(attr.To)}}, nil
}
