package bank

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
)

var _ txtypes.Module = (*Module)(nil)

// Module handles native value transfers and joint accounts.
type Module struct {
	state  *state.State
	ledger *Ledger
	domain attestation.Domain
	log    *zerolog.Logger
}

func NewModule(s *state.State, domain attestation.Domain, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Module{
		state:  s,
		ledger: NewLedger(s),
		domain: domain,
		log:    logger.Module(log, "bank"),
	}, nil
}

func (m *Module) Ledger() *Ledger {
	return m.ledger
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeTransfer:           txtypes.NewTxHandler[TransferAttributes](m.validateTransferTx, m.executeTransferTx),
		PayloadTypeCreateJointAccount: txtypes.NewTxHandler[CreateJointAccountAttributes](m.validateCreateJointTx, m.executeCreateJointTx),
		PayloadTypeJointDeposit:       txtypes.NewTxHandler[JointDepositAttributes](m.validateJointDepositTx, m.executeJointDepositTx),
		PayloadTypeJointWithdraw:      txtypes.NewTxHandler[JointWithdrawAttributes](m.validateJointWithdrawTx, m.executeJointWithdrawTx),
	}
}
