/*
Package escrow implements commit-reveal execution. The owner first locks value
under a commitment hiding the execution parameters, later reveals the
parameters together with a risk attestation and the value is forwarded to the
executor. Unrevealed commitments can be refunded after their deadline.
*/
package escrow

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/keyvaluedb/memorydb"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeCommit = "commit"
	PayloadTypeReveal = "reveal"
	PayloadTypeRefund = "refund"

	EventCommitCreated types.EventType = "CommitCreated"
	EventRevealed      types.EventType = "Revealed"
	EventRefunded      types.EventType = "Refunded"
)

var (
	ErrCommitExists       = errors.New("commitment already exists")
	ErrCommitNotFound     = errors.New("commitment not found")
	ErrNotOwner           = errors.New("caller is not the commitment owner")
	ErrAlreadyRevealed    = errors.New("commitment already revealed")
	ErrAlreadyRefunded    = errors.New("commitment already refunded")
	ErrCommitExpired      = errors.New("commitment deadline has passed")
	ErrRefundTooEarly     = errors.New("commitment deadline has not passed")
	ErrParamsHashMismatch = errors.New("params do not match the params hash")
	ErrExecutionFailed    = errors.New("execution failed")
	ErrExecutionPending   = errors.New("outcome of an earlier execution is unknown")
	ErrAlreadyExecuted    = errors.New("commitment was already executed")
	ErrReentrantCall      = errors.New("re-entrant call")
)

var _ txtypes.Module = (*Module)(nil)

type (
	CommitAttributes struct {
		_        struct{} `cbor:",toarray"`
		ID       common.Hash
		Deadline uint64
		Value    uint64
	}

	RevealAttributes struct {
		_           struct{} `cbor:",toarray"`
		Params      []byte
		ParamsHash  common.Hash
		Salt        common.Hash
		Attestation *attestation.Attestation
		Signatures  [][]byte
	}

	RefundAttributes struct {
		_  struct{} `cbor:",toarray"`
		ID common.Hash
	}

	// Option configures the escrow module.
	Option func(m *Module)

	Module struct {
		state    *state.State
		verifier *attestation.Verifier
		executor Executor
		journal  *Journal
		// entered guards the operations which transfer value or call the executor
		entered atomic.Bool
		log     *zerolog.Logger
	}
)

// WithJournal sets the execution journal, the node keeps it in its database.
// An in-memory journal is used by default.
func WithJournal(j *Journal) Option {
	return func(m *Module) {
		m.journal = j
	}
}

func NewModule(s *state.State, verifier *attestation.Verifier, executor Executor, log *zerolog.Logger, opts ...Option) (*Module, error) {
	if s == nil {
		return nil, errors.New("state is nil")
	}
	if verifier == nil {
		return nil, errors.New("attestation verifier is nil")
	}
	if executor == nil {
		return nil, errors.New("executor is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	m := &Module{
		state:    s,
		verifier: verifier,
		executor: executor,
		journal:  NewJournal(memorydb.New()),
		log:      logger.Module(log, "escrow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.journal == nil {
		return nil, errors.New("execution journal is nil")
	}
	return m, nil
}

func (m *Module) TxHandlers() map[string]txtypes.TxExecutor {
	return map[string]txtypes.TxExecutor{
		PayloadTypeCommit: txtypes.NewTxHandler[CommitAttributes](m.validateCommitTx, m.executeCommitTx),
		PayloadTypeReveal: txtypes.NewTxHandler[RevealAttributes](m.validateRevealTx, guarded[RevealAttributes](m, m.executeRevealTx)),
		PayloadTypeRefund: txtypes.NewTxHandler[RefundAttributes](m.validateRefundTx, guarded[RefundAttributes](m, m.executeRefundTx)),
	}
}

// Commit returns the commitment, found is false when it does not exist.
func (m *Module) Commit(id common.Hash, committed bool) (*Commit, bool, error) {
	return getCommit(m.state, id, committed)
}

func getCommit(s txtypes.StateReader, id common.Hash, committed bool) (*Commit, bool, error) {
	u, err := s.GetUnit(CommitUnitID(id), committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	c, ok := u.(*Commit)
	if !ok {
		return nil, false, fmt.Errorf("invalid unit data type %T", u)
	}
	return c, true, nil
}

func guarded[A any](m *Module, f txtypes.GenericExecuteFunc[A]) txtypes.GenericExecuteFunc[A] {
	return func(tx *types.TransactionOrder, attr *A, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
		if !m.entered.CompareAndSwap(false, true) {
			return nil, ErrReentrantCall
		}
		defer m.entered.Store(false)
		return f(tx, attr, exeCtx)
	}
}
