// Package credit implements attestation gated credit lines lent out of a
// shared liquidity pool, with simple interest accrued on every touch.
package credit

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
)

var (
	ErrLineNotFound          = errors.New("credit line not found")
	ErrNoDebt                = errors.New("no debt to repay")
	ErrExceedsLimit          = errors.New("borrow exceeds credit limit")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrNotLiquidatable       = errors.New("credit line can not be liquidated")
	ErrInvalidParams         = errors.New("invalid credit parameters")
	ErrZeroAmount            = errors.New("amount must be greater than zero")
)

var _ txtypes.Module = (*Module)(nil)

type Module struct {
	state    *state.State
	ledger   *Ledger
	registry *access.Registry
	verifier *attestation.Verifier
	log      *zerolog.Logger
}

func NewModule(s *state.State, registry *access.Registry, verifier *attestation.Verifier, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if registry == nil {
		return nil, errors.New("access registry is nil")
	}
	if verifier == nil {
		return nil, errors.New("attestation verifier is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Module{
		state:    s,
		ledger:   NewLedger(s),
		registry: registry,
		verifier: verifier,
		log:      logger.Module(log, "credit"),
	}, nil
}

func (m *Module) Ledger() *Ledger {
	return m.ledger
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeOpenOrUpdateLine:  txtypes.NewTxHandler[OpenOrUpdateLineAttributes](m.validateOpenOrUpdateLineTx, m.executeOpenOrUpdateLineTx),
		PayloadTypeBorrow:            txtypes.NewTxHandler[AmountAttributes](validateAmount, m.executeBorrowTx),
		PayloadTypeRepay:             txtypes.NewTxHandler[AmountAttributes](validateAmount, m.executeRepayTx),
		PayloadTypeLiquidate:         txtypes.NewTxHandler[LiquidateAttributes](m.validateLiquidateTx, m.executeLiquidateTx),
		PayloadTypeSetCreditParams:   txtypes.NewTxHandler[SetCreditParamsAttributes](m.validateSetCreditParamsTx, m.executeSetCreditParamsTx),
		PayloadTypeDepositLiquidity:  txtypes.NewTxHandler[AmountAttributes](m.validateTreasuryAmount, m.executeDepositLiquidityTx),
		PayloadTypeWithdrawLiquidity: txtypes.NewTxHandler[AmountAttributes](m.validateTreasuryAmount, m.executeWithdrawLiquidityTx),
	}
}
