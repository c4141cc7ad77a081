// Package gas refunds transaction costs of well graded subjects from a
// sponsor pool, within a daily allowance per tier.
package gas

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeSponsor             = "sponsor"
	PayloadTypeSetGasAllowances    = "setGasAllowances"
	PayloadTypeFundSponsorPool     = "fundSponsorPool"
	PayloadTypeWithdrawSponsorPool = "withdrawSponsorPool"

	EventGasSponsored         types.EventType = "GasSponsored"
	EventGasAllowancesSet     types.EventType = "GasAllowancesSet"
	EventSponsorPoolFunded    types.EventType = "SponsorPoolFunded"
	EventSponsorPoolWithdrawn types.EventType = "SponsorPoolWithdrawn"
)

var (
	ErrNotEligible                = errors.New("subject tier is not eligible for sponsorship")
	ErrAllowanceExhausted         = errors.New("daily gas allowance exhausted")
	ErrInsufficientSponsorBalance = errors.New("insufficient sponsor pool balance")
	ErrCostOverflow               = errors.New("gas cost overflows")
	ErrZeroAmount                 = errors.New("amount must be greater than zero")
	ErrZeroCost                   = errors.New("gas used and gas price must be greater than zero")
)

var _ txtypes.Module = (*Module)(nil)

type (
	SponsorAttributes struct {
		_           struct{} `cbor:",toarray"`
		Subject     common.Address
		GasUsed     uint64
		GasPrice    uint64
		Attestation *attestation.Attestation
		Signatures  [][]byte
	}

	SetGasAllowancesAttributes struct {
		_      struct{} `cbor:",toarray"`
		Params *Params
	}

	AmountAttributes struct {
		_      struct{} `cbor:",toarray"`
		Amount uint64
	}

	Module struct {
		state    *state.State
		ledger   *Ledger
		registry *access.Registry
		verifier *attestation.Verifier
		tiers    TierReader
		log      *zerolog.Logger
	}
)

func NewModule(s *state.State, registry *access.Registry, verifier *attestation.Verifier, tiers TierReader, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if registry == nil {
		return nil, errors.New("access registry is nil")
	}
	if verifier == nil {
		return nil, errors.New("attestation verifier is nil")
	}
	if tiers == nil {
		return nil, errors.New("tier reader is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	return &Module{
		state:    s,
		ledger:   NewLedger(s, tiers),
		registry: registry,
		verifier: verifier,
		tiers:    tiers,
		log:      logger.Module(log, "gas"),
	}, nil
}

func (m *Module) Ledger() *Ledger {
	return m.ledger
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeSponsor:             txtypes.NewTxHandler[SponsorAttributes](m.validateSponsorTx, m.executeSponsorTx),
		PayloadTypeSetGasAllowances:    txtypes.NewTxHandler[SetGasAllowancesAttributes](m.validateSetGasAllowancesTx, m.executeSetGasAllowancesTx),
		PayloadTypeFundSponsorPool:     txtypes.NewTxHandler[AmountAttributes](validateAmount, m.executeFundSponsorPoolTx),
		PayloadTypeWithdrawSponsorPool: txtypes.NewTxHandler[AmountAttributes](m.validateWithdrawSponsorPoolTx, m.executeWithdrawSponsorPoolTx),
	}
}

func (m *Module) validateSponsorTx(tx *types.TransactionOrder, attr *SponsorAttributes, exeCtx txtypes.ExecutionContext) error {
	if err := m.registry.Require(access.RoleSponsor, exeCtx.Caller()); err != nil {
		return err
	}
	if attr.GasUsed == 0 || attr.GasPrice == 0 {
		return fmt.Errorf("%w: gas used %d, price %d", ErrZeroCost, attr.GasUsed, attr.GasPrice)
	}
	if err := m.verifier.CheckFor(attr.Subject, attr.Attestation, attr.Signatures, exeCtx.Now()); err != nil {
		return fmt.Errorf("attestation: %w", err)
	}
	if t := m.tiers.Tier(attr.Subject, false); !Eligible(t) {
		return fmt.Errorf("%w: tier %s", ErrNotEligible, t)
	}
	return nil
}

func (m *Module) executeSponsorTx(tx *types.TransactionOrder, attr *SponsorAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	now := exeCtx.Now()
	cost := new(uint256.Int).Mul(uint256.NewInt(attr.GasUsed), uint256.NewInt(attr.GasPrice))
	if !cost.IsUint64() {
		return nil, fmt.Errorf("%w: gas used %d, price %d", ErrCostOverflow, attr.GasUsed, attr.GasPrice)
	}
	remaining, err := m.ledger.RemainingAllowance(attr.Subject, now, false)
	if err != nil {
		return nil, err
	}
	refund := min(cost.Uint64(), remaining)
	if refund == 0 {
		return nil, fmt.Errorf("%w: requested %d, remaining %d", ErrAllowanceExhausted, cost.Uint64(), remaining)
	}
	err = m.state.Apply(
		TakeFromPool(refund),
		Spend(attr.Subject, refund, now),
		bank.Credit(attr.Subject, refund),
	)
	if err != nil {
		return nil, fmt.Errorf("sponsor: %w", err)
	}
	m.log.Debug().Str("subject", attr.Subject.Hex()).Uint64("refund", refund).Uint64("requested", cost.Uint64()).Msg("gas sponsored")
	exeCtx.EmitEvent(types.NewEvent(EventGasSponsored, attr.Subject).
		WithRef(attr.Attestation.SubjectRef).
		With("requested", cost.Uint64()).
		With("refund", refund))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{AllowanceID(attr.Subject), poolUnitID, bank.AccountID(attr.Subject)}}, nil
}

func (m *Module) validateSetGasAllowancesTx(tx *types.TransactionOrder, attr *SetGasAllowancesAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Params == nil {
		return errors.New("gas allowance params are nil")
	}
	return m.registry.Require(access.RoleAdmin, exeCtx.Caller())
}

func (m *Module) executeSetGasAllowancesTx(tx *types.TransactionOrder, attr *SetGasAllowancesAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	if err := m.state.Apply(state.SetUnit(paramsUnitID, attr.Params)); err != nil {
		return nil, fmt.Errorf("set gas allowances: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventGasAllowancesSet, exeCtx.Caller()))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{paramsUnitID}}, nil
}

func validateAmount(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Amount == 0 {
		return ErrZeroAmount
	}
	return nil
}

func (m *Module) executeFundSponsorPoolTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller := exeCtx.Caller()
	if err := m.state.Apply(bank.Debit(caller, attr.Amount), AddToPool(attr.Amount)); err != nil {
		return nil, fmt.Errorf("fund sponsor pool: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventSponsorPoolFunded, caller).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{poolUnitID, bank.AccountID(caller)}}, nil
}

func (m *Module) validateWithdrawSponsorPoolTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) error {
	if err := validateAmount(tx, attr, exeCtx); err != nil {
		return err
	}
	return m.registry.Require(access.RoleTreasury, exeCtx.Caller())
}

func (m *Module) executeWithdrawSponsorPoolTx(tx *types.TransactionOrder, attr *AmountAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller := exeCtx.Caller()
	if err := m.state.Apply(TakeFromPool(attr.Amount), bank.Credit(caller, attr.Amount)); err != nil {
		return nil, fmt.Errorf("withdraw sponsor pool: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventSponsorPoolWithdrawn, caller).With("amount", attr.Amount))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{poolUnitID, bank.AccountID(caller)}}, nil
}
