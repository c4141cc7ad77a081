// Package reputation grades subjects into risk tiers. Grades change only
// through a verified attestation and the latest attestation always wins.
package reputation

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeAttestWithScore = "attestWithScore"

	EventGradeUpdated types.EventType = "GradeUpdated"
)

var _ txtypes.Module = (*Module)(nil)

type (
	AttestWithScoreAttributes struct {
		_           struct{} `cbor:",toarray"`
		Subject     common.Address
		Attestation *attestation.Attestation
		Signatures  [][]byte
	}

	Module struct {
		state    *state.State
		ledger   *Ledger
		verifier *attestation.Verifier
		log      *zerolog.Logger
	}
)

func NewModule(s *state.State, verifier *attestation.Verifier, log *zerolog.Logger) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
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
		verifier: verifier,
		log:      logger.Module(log, "reputation"),
	}, nil
}

func (m *Module) Ledger() *Ledger {
	return m.ledger
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeAttestWithScore: txtypes.NewTxHandler[AttestWithScoreAttributes](m.validateAttestWithScoreTx, m.executeAttestWithScoreTx),
	}
}

func (m *Module) validateAttestWithScoreTx(tx *types.TransactionOrder, attr *AttestWithScoreAttributes, exeCtx txtypes.ExecutionContext) error {
	if err := m.verifier.CheckFor(attr.Subject, attr.Attestation, attr.Signatures, exeCtx.Now()); err != nil {
		return fmt.Errorf("attestation: %w", err)
	}
	return nil
}

func (m *Module) executeAttestWithScoreTx(tx *types.TransactionOrder, attr *AttestWithScoreAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	a := attr.Attestation
	rec := &Record{
		Tier:       tier.FromScore(a.Score),
		Score:      a.Score,
		SubjectRef: a.SubjectRef,
		Nonce:      a.Nonce,
		UpdatedAt:  exeCtx.Now(),
	}
	if err := m.state.Apply(SetRecord(attr.Subject, rec)); err != nil {
		return nil, fmt.Errorf("attest with score: failed to update state: %w", err)
	}
	m.log.Debug().EmbedObject(logger.UnitID(RecordID(attr.Subject))).Str("tier", rec.Tier.String()).Msg("grade updated")
	exeCtx.EmitEvent(types.NewEvent(EventGradeUpdated, attr.Subject).
		WithRef(a.SubjectRef).
		With("tier", uint64(rec.Tier)).
		With("score", a.Score))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{RecordID(attr.Subject)}}, nil
}
