package txsystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

var (
	ErrTransactionExpired = errors.New("transaction timeout must not be in the past")
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidNonce       = errors.New("invalid transaction nonce")
	ErrReentrantCall      = errors.New("re-entrant call")

	ErrStateContainsUncommittedChanges = errors.New("state contains uncommitted changes")
)

// NonceTracker provides the replay protection of transaction orders, every
// sender has a counter which must match the nonce of the next order.
type NonceTracker interface {
	Nonce(addr common.Address) uint64
	IncrementNonce(addr common.Address) state.Action
}

/*
GenericTxSystem executes transaction orders of the registered modules. Every
order runs inside a state savepoint so that either all changes it made
are kept or none of them.
*/
type GenericTxSystem struct {
	state     *state.State
	executors txtypes.TxExecutors
	nonces    NonceTracker
	clock     func() uint64
	executing atomic.Bool
	log       *zerolog.Logger
}

func NewGenericTxSystem(modules []txtypes.Module, nonces NonceTracker, log *zerolog.Logger, opts ...Option) (*GenericTxSystem, error) {
	if nonces == nil {
		return nil, errors.New("nonce tracker is nil")
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	txs := &GenericTxSystem{
		state:     cfg.state,
		executors: make(txtypes.TxExecutors),
		nonces:    nonces,
		clock:     cfg.now,
		log:       logger.Module(log, "txsystem"),
	}
	for _, module := range modules {
		if err := txs.executors.Add(module.TxHandlers()); err != nil {
			return nil, fmt.Errorf("registering tx executors: %w", err)
		}
	}
	return txs, nil
}

/*
Execute validates and executes the transaction order. On success the changes
are kept in the uncommitted state, caller must call Commit or Revert.
*/
func (m *GenericTxSystem) Execute(ctx context.Context, tx *types.TransactionOrder) (sm *types.ServerMetadata, rErr error) {
	if !m.executing.CompareAndSwap(false, true) {
		return nil, ErrReentrantCall
	}
	defer m.executing.Store(false)

	now := m.clock()
	sender, err := m.validateGenericTransaction(tx, now)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}

	exeCtx := txtypes.NewExecutionContext(ctx, m.state, sender, now)
	savepointID := m.state.Savepoint()
	defer func() {
		if rErr != nil {
			// transaction execution failed. revert every change made by the transaction order
			m.state.RollbackToSavepoint(savepointID)
			return
		}
		if err := m.state.Apply(m.nonces.IncrementNonce(sender)); err != nil {
			m.state.RollbackToSavepoint(savepointID)
			sm, rErr = nil, fmt.Errorf("incrementing nonce: %w", err)
			return
		}
		m.state.ReleaseToSavepoint(savepointID)
	}()

	m.log.Debug().EmbedObject(logger.UnitID(tx.UnitID())).Str("caller", sender.Hex()).Msgf("execute %s", tx.PayloadType())
	sm, err = m.executors.ValidateAndExecute(tx, exeCtx)
	if err != nil {
		return nil, fmt.Errorf("tx order execution failed: %w", err)
	}
	if sm == nil {
		sm = &types.ServerMetadata{}
	}
	sm.SuccessIndicator = types.TxStatusSuccessful
	sm.ExecutedAt = now
	sm.Events = append(sm.Events, exeCtx.Events()...)
	return sm, nil
}

/*
validateGenericTransaction does the validation common to all transaction
types and returns the sender of the transaction order.
*/
func (m *GenericTxSystem) validateGenericTransaction(tx *types.TransactionOrder, now uint64) (common.Address, error) {
	if tx == nil || tx.Payload == nil {
		return common.Address{}, types.ErrPayloadIsNil
	}
	if timeout := tx.Timeout(); timeout != 0 && now > timeout {
		return common.Address{}, fmt.Errorf("%w: timeout %d, now %d", ErrTransactionExpired, timeout, now)
	}
	sender, err := tx.Sender()
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if n := m.nonces.Nonce(sender); n != tx.Nonce() {
		return common.Address{}, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, n, tx.Nonce())
	}
	return sender, nil
}

// Now returns the current execution time in unix seconds.
func (m *GenericTxSystem) Now() uint64 {
	return m.clock()
}

func (m *GenericTxSystem) State() *state.State {
	return m.state
}

func (m *GenericTxSystem) Commit() {
	m.state.Commit()
}

func (m *GenericTxSystem) Revert() {
	m.state.Revert()
}

func (m *GenericTxSystem) StateRoot() ([]byte, error) {
	if !m.state.IsCommitted() {
		return nil, ErrStateContainsUncommittedChanges
	}
	return m.state.CommittedRoot()
}

func (m *GenericTxSystem) SerializeState(writer io.Writer, round uint64) error {
	return m.state.Serialize(writer, true, round)
}
