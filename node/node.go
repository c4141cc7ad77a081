/*
Package node runs the riskgate ledger: transaction orders are executed one
at a time by the transaction system and every successful order is persisted
together with the resulting state snapshot and the events it emitted.
*/
package node

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/metrics"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/txsystem"
	"github.com/riskgate-org/riskgate/txsystem/admin"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/txsystem/fees"
	"github.com/riskgate-org/riskgate/txsystem/gas"
	"github.com/riskgate-org/riskgate/txsystem/reputation"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

var (
	ErrGenesisIsNil     = errors.New("genesis is nil")
	ErrGenesisMismatch  = errors.New("stored state was created from a different genesis")
	ErrPersistingFailed = errors.New("persisting transaction failed")
)

var (
	metaKey     = []byte("meta")
	stateKey    = []byte("state")
	txPrefix    = []byte("tx/")
	eventPrefix = []byte("event/")
)

type (
	// meta is stored in the same DB transaction as the state snapshot.
	meta struct {
		_            struct{} `cbor:",toarray"`
		GenesisHash  common.Hash
		Round        uint64
		NextEventSeq uint64
	}

	Node struct {
		genesisHash common.Hash
		db          keyvaluedb.KeyValueDB
		codec       *snapshotCodec
		closeOnce   sync.Once
		txSystem    *txsystem.GenericTxSystem
		state       *state.State

		registry   *access.Registry
		verifier   *attestation.Verifier
		bank       *bank.Ledger
		reputation *reputation.Ledger
		credit     *credit.Ledger
		fees       *fees.Engine
		gas        *gas.Ledger
		escrow     *escrow.Module

		metricsRegistry *metrics.Registry
		txMetrics       *metrics.TxMetrics

		// mu serializes transaction submission, meta is guarded by it
		mu   sync.Mutex
		meta meta
		log  *zerolog.Logger
	}
)

/*
New creates the node. When the DB contains a state snapshot the state is
recovered from it, otherwise the genesis is applied to an empty state and
persisted.
*/
func New(g *genesis.Genesis, log *zerolog.Logger, opts ...Option) (*Node, error) {
	if g == nil {
		return nil, ErrGenesisIsNil
	}
	if log == nil {
		return nil, errors.New("logger is nil")
	}
	if err := g.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	cfg := defaultConfiguration()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.db == nil {
		return nil, errors.New("db is nil")
	}
	genesisHash, err := g.Hash()
	if err != nil {
		return nil, err
	}
	codec, err := newSnapshotCodec()
	if err != nil {
		return nil, err
	}
	n := &Node{
		genesisHash:     genesisHash,
		db:              cfg.db,
		codec:           codec,
		metricsRegistry: cfg.metrics,
		txMetrics:       metrics.NewTxMetrics(cfg.metrics),
		log:             logger.Module(log, "node"),
	}
	if err := n.initState(g); err != nil {
		codec.close()
		return nil, err
	}
	if err := n.initTxSystem(g.Domain, cfg); err != nil {
		codec.close()
		return nil, err
	}
	n.txMetrics.Units.Update(int64(n.state.UnitCount()))
	return n, nil
}

func (n *Node) initState(g *genesis.Genesis) error {
	found, err := n.db.Read(metaKey, &n.meta)
	if err != nil {
		return fmt.Errorf("reading node meta: %w", err)
	}
	if found {
		if n.meta.GenesisHash != n.genesisHash {
			return fmt.Errorf("%w: stored %s, genesis %s", ErrGenesisMismatch, n.meta.GenesisHash, n.genesisHash)
		}
		var snapshot []byte
		if _, err := n.db.Read(stateKey, &snapshot); err != nil {
			return fmt.Errorf("reading state snapshot: %w", err)
		}
		s, header, err := n.codec.decode(snapshot)
		if err != nil {
			return fmt.Errorf("recovering state: %w", err)
		}
		if header.Round != n.meta.Round {
			return fmt.Errorf("state snapshot round %d does not match node round %d", header.Round, n.meta.Round)
		}
		n.state = s
		n.log.Info().EmbedObject(logger.Round(n.meta.Round)).Msgf("state recovered, %d units", header.UnitCount)
		return nil
	}

	n.state = state.NewEmptyState()
	if err := g.Apply(n.state); err != nil {
		return err
	}
	n.meta = meta{GenesisHash: n.genesisHash}
	if err := n.persist(nil, n.meta, true); err != nil {
		return fmt.Errorf("persisting genesis state: %w", err)
	}
	n.log.Info().Msgf("genesis %s applied", n.genesisHash)
	return nil
}

func (n *Node) initTxSystem(domain attestation.Domain, cfg *configuration) error {
	s := n.state
	n.registry = access.NewRegistry(s)
	n.verifier = attestation.NewVerifier(domain, n.registry, n.registry.MinSigners)

	bankModule, err := bank.NewModule(s, domain, n.log)
	if err != nil {
		return fmt.Errorf("creating bank module: %w", err)
	}
	adminModule, err := admin.NewModule(s, n.registry, n.log)
	if err != nil {
		return fmt.Errorf("creating admin module: %w", err)
	}
	reputationModule, err := reputation.NewModule(s, n.verifier, n.log)
	if err != nil {
		return fmt.Errorf("creating reputation module: %w", err)
	}
	creditModule, err := credit.NewModule(s, n.registry, n.verifier, n.log)
	if err != nil {
		return fmt.Errorf("creating credit module: %w", err)
	}
	feesModule, err := fees.NewModule(s, n.registry, reputationModule.Ledger(), n.log)
	if err != nil {
		return fmt.Errorf("creating fees module: %w", err)
	}
	gasModule, err := gas.NewModule(s, n.registry, n.verifier, reputationModule.Ledger(), n.log)
	if err != nil {
		return fmt.Errorf("creating gas module: %w", err)
	}
	escrowModule, err := escrow.NewModule(s, n.verifier, cfg.executor, n.log, escrow.WithJournal(escrow.NewJournal(n.db)))
	if err != nil {
		return fmt.Errorf("creating escrow module: %w", err)
	}

	n.txSystem, err = txsystem.NewGenericTxSystem(
		[]txtypes.Module{bankModule, adminModule, reputationModule, creditModule, feesModule, gasModule, escrowModule},
		bankModule.Ledger(),
		n.log,
		txsystem.WithState(s),
		txsystem.WithClock(cfg.clock),
	)
	if err != nil {
		return fmt.Errorf("creating tx system: %w", err)
	}
	n.bank = bankModule.Ledger()
	n.reputation = reputationModule.Ledger()
	n.credit = creditModule.Ledger()
	n.fees = feesModule.Engine()
	n.gas = gasModule.Ledger()
	n.escrow = escrowModule
	return nil
}

/*
SubmitTx executes the transaction order and persists the result. The state
change is committed only after the transaction record, its events and the
new state snapshot are written, when writing fails the change is reverted.
*/
func (n *Node) SubmitTx(ctx context.Context, tx *types.TransactionOrder) (_ *types.TransactionRecord, rErr error) {
	if tx == nil {
		return nil, types.ErrPayloadIsNil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	n.txMetrics.Received.Inc(1)
	defer func() { n.txMetrics.Observe(start, rErr) }()

	sm, err := n.txSystem.Execute(ctx, tx)
	if err != nil {
		n.log.Debug().Err(err).Str(logger.TxTypeKey, tx.PayloadType()).Msg("transaction rejected")
		return nil, err
	}
	rec := &types.TransactionRecord{TransactionOrder: tx, ServerMetadata: sm}

	m := n.meta
	m.Round++
	for _, e := range sm.Events {
		e.Seq = m.NextEventSeq
		m.NextEventSeq++
	}
	if err := n.persist(rec, m, false); err != nil {
		n.txSystem.Revert()
		n.log.Error().Err(err).Str(logger.TxTypeKey, tx.PayloadType()).Msg("persisting transaction failed, state reverted")
		return nil, fmt.Errorf("%w: %w", ErrPersistingFailed, err)
	}
	n.txSystem.Commit()
	n.meta = m
	n.txMetrics.Persisted.Inc(1)
	n.txMetrics.Units.Update(int64(n.state.UnitCount()))

	if hash, err := rec.Hash(); err == nil {
		n.log.Debug().EmbedObject(logger.Tx(tx.PayloadType(), hash.Bytes())).EmbedObject(logger.Round(m.Round)).Msgf("transaction executed, %d events", len(sm.Events))
	}
	return rec, nil
}

// persist writes the transaction record, its events, the state snapshot and
// meta in one DB transaction. rec is nil for the genesis state.
func (n *Node) persist(rec *types.TransactionRecord, m meta, committed bool) (rErr error) {
	snapshot, err := n.codec.encode(n.state, committed, m.Round)
	if err != nil {
		return err
	}
	dbTx, err := n.db.StartTx()
	if err != nil {
		return fmt.Errorf("starting db transaction: %w", err)
	}
	defer func() {
		if rErr != nil {
			if err := dbTx.Rollback(); err != nil {
				rErr = errors.Join(rErr, fmt.Errorf("db transaction rollback: %w", err))
			}
		}
	}()

	if rec != nil {
		hash, err := rec.Hash()
		if err != nil {
			return err
		}
		if err := dbTx.Write(txKey(hash), rec); err != nil {
			return fmt.Errorf("writing transaction record: %w", err)
		}
		for _, e := range rec.ServerMetadata.GetEvents() {
			if err := dbTx.Write(eventKey(e.Seq), e); err != nil {
				return fmt.Errorf("writing event %d: %w", e.Seq, err)
			}
		}
	}
	if err := dbTx.Write(stateKey, snapshot); err != nil {
		return fmt.Errorf("writing state snapshot: %w", err)
	}
	if err := dbTx.Write(metaKey, &m); err != nil {
		return fmt.Errorf("writing node meta: %w", err)
	}
	return dbTx.Commit()
}

// Close releases the snapshot codec, the DB is owned by the caller.
func (n *Node) Close() {
	n.closeOnce.Do(n.codec.close)
}

func (n *Node) Metrics() *metrics.Registry {
	return n.metricsRegistry
}

func txKey(hash common.Hash) []byte {
	return append(append([]byte{}, txPrefix...), hash.Bytes()...)
}

func eventKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, eventPrefix...), seq)
}
