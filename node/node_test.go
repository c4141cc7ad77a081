package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/keyvaluedb/boltdb"
	"github.com/riskgate-org/riskgate/keyvaluedb/memorydb"
	test "github.com/riskgate-org/riskgate/testutils"
	testattestation "github.com/riskgate-org/riskgate/testutils/attestation"
	testlogger "github.com/riskgate-org/riskgate/testutils/logger"
	testsig "github.com/riskgate-org/riskgate/testutils/sig"
	testtransaction "github.com/riskgate-org/riskgate/testutils/transaction"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/txsystem"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/txsystem/reputation"
	"github.com/riskgate-org/riskgate/types"
)

var testTime = time.Unix(1_700_000_000, 0)

type testEnv struct {
	genesis    *genesis.Genesis
	validators []*ecdsa.PrivateKey
	user       *ecdsa.PrivateKey
	userAddr   common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	keys, addrs := testsig.CreateSortedKeys(t, 3)
	user, userAddr := testsig.CreateKey(t)
	g := genesis.Default()
	g.Domain = testattestation.Domain
	g.Admins = []common.Address{test.RandomAddress()}
	g.Validators = addrs
	g.MinSigners = 2
	g.Balances = []genesis.Balance{{Address: userAddr, Amount: 1000}}
	g.CreditLiquidity = 100_000
	return &testEnv{genesis: g, validators: keys, user: user, userAddr: userAddr}
}

func (e *testEnv) newNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	n, err := New(e.genesis, testlogger.New(t), append([]Option{WithClock(func() time.Time { return testTime })}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n
}

func (e *testEnv) attest(t *testing.T, score uint64) (*attestation.Attestation, [][]byte) {
	t.Helper()
	a := &attestation.Attestation{
		SubjectRef: test.RandomHash(),
		Subject:    e.userAddr,
		Score:      score,
		Threshold:  750_000,
		Nonce:      1,
		Deadline:   uint64(testTime.Unix()) + 3600,
	}
	sigs, err := attestation.SignSorted(e.genesis.Domain, a, e.validators[0], e.validators[2])
	require.NoError(t, err)
	return a, sigs
}

func submit(t *testing.T, n *Node, key *ecdsa.PrivateKey, txType string, attr any) (*types.TransactionRecord, error) {
	t.Helper()
	nonce, err := n.Nonce(testsig.Address(key))
	require.NoError(t, err)
	return n.SubmitTx(context.Background(), testtransaction.NewSigned(t, key, txType, nonce, attr))
}

func TestNew(t *testing.T) {
	log := testlogger.New(t)
	_, err := New(nil, log)
	require.ErrorIs(t, err, ErrGenesisIsNil)
	_, err = New(genesis.Default(), log)
	require.ErrorContains(t, err, "invalid genesis")
	_, err = New(newTestEnv(t).genesis, nil)
	require.EqualError(t, err, "logger is nil")
}

func TestSubmitTx(t *testing.T) {
	env := newTestEnv(t)
	n := env.newNode(t)
	other := test.RandomAddress()

	rec, err := submit(t, n, env.user, bank.PayloadTypeTransfer, &bank.TransferAttributes{To: other, Amount: 100})
	require.NoError(t, err)
	require.Equal(t, types.TxStatusSuccessful, rec.ServerMetadata.SuccessIndicator)
	require.Len(t, rec.ServerMetadata.Events, 1)
	require.Equal(t, bank.EventTransfer, rec.ServerMetadata.Events[0].Type)
	require.Zero(t, rec.ServerMetadata.Events[0].Seq)

	acc, err := n.Account(other)
	require.NoError(t, err)
	require.EqualValues(t, 100, acc.Balance)
	nonce, err := n.Nonce(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce)

	hash, err := rec.Hash()
	require.NoError(t, err)
	stored, err := n.TransactionRecord(hash)
	require.NoError(t, err)
	require.Equal(t, rec.ServerMetadata.Events, stored.ServerMetadata.Events)
	_, err = n.TransactionRecord(test.RandomHash())
	require.ErrorIs(t, err, ErrNotFound)

	t.Run("replayed order is rejected", func(t *testing.T) {
		_, err := n.SubmitTx(context.Background(), rec.TransactionOrder)
		require.ErrorIs(t, err, txsystem.ErrInvalidNonce)
		info, err := n.Info()
		require.NoError(t, err)
		require.EqualValues(t, 1, info.Round)
	})
	t.Run("nil order", func(t *testing.T) {
		_, err := n.SubmitTx(context.Background(), nil)
		require.ErrorIs(t, err, types.ErrPayloadIsNil)
	})
}

func TestCreditScenario(t *testing.T) {
	env := newTestEnv(t)
	n := env.newNode(t)

	a, sigs := env.attest(t, 920_000)
	_, err := submit(t, n, env.user, reputation.PayloadTypeAttestWithScore, &reputation.AttestWithScoreAttributes{Subject: env.userAddr, Attestation: a, Signatures: sigs})
	require.NoError(t, err)
	rec, err := n.Reputation(env.userAddr)
	require.NoError(t, err)
	require.Equal(t, tier.A, rec.Tier)
	fee, err := n.Fee(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 15, fee.FeeBps)
	require.Equal(t, tier.A, fee.Tier)

	a, sigs = env.attest(t, 920_000)
	_, err = submit(t, n, env.user, credit.PayloadTypeOpenOrUpdateLine, &credit.OpenOrUpdateLineAttributes{Attestation: a, Signatures: sigs, LimitHint: 1000})
	require.NoError(t, err)
	line, err := n.CreditLine(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 4000, line.Limit)

	_, err = submit(t, n, env.user, credit.PayloadTypeBorrow, &credit.AmountAttributes{Amount: 3000})
	require.NoError(t, err)
	_, err = submit(t, n, env.user, credit.PayloadTypeBorrow, &credit.AmountAttributes{Amount: 5000})
	require.ErrorIs(t, err, credit.ErrExceedsLimit)

	acc, err := n.Account(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 4000, acc.Balance)
	pool, err := n.CreditPool()
	require.NoError(t, err)
	require.EqualValues(t, 97_000, pool.Liquidity)

	gasInfo, err := n.GasAllowance(env.userAddr)
	require.NoError(t, err)
	require.True(t, gasInfo.Eligible)
	require.EqualValues(t, 1_000_000, gasInfo.Remaining)

	_, err = n.Reputation(test.RandomAddress())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = n.CreditLine(test.RandomAddress())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = n.Commit(test.RandomHash())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = n.JointAccount(test.RandomHash())
	require.ErrorIs(t, err, ErrNotFound)

	info, err := n.Info()
	require.NoError(t, err)
	require.EqualValues(t, 3, info.Round)
	require.EqualValues(t, 2, info.MinSigners)
	require.ElementsMatch(t, env.genesis.Validators, info.Validators)

	events, err := n.Events(0, 0)
	require.NoError(t, err)
	require.Len(t, events, int(info.NextEventSeq))
	for i, e := range events {
		require.EqualValues(t, i, e.Seq)
	}
	require.Equal(t, credit.EventBorrowed, events[len(events)-1].Type)

	page, err := n.Events(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.EqualValues(t, 1, page[0].Seq)
}

func TestEscrowWithoutVenue(t *testing.T) {
	env := newTestEnv(t)
	n := env.newNode(t)

	params := []byte("swap")
	salt := test.RandomHash()
	a, sigs := env.attest(t, 920_000)
	paramsHash := crypto.Keccak256Hash(params)
	id, err := escrow.CommitmentID(env.userAddr, paramsHash, salt, a.Deadline)
	require.NoError(t, err)

	_, err = submit(t, n, env.user, escrow.PayloadTypeCommit, &escrow.CommitAttributes{ID: id, Deadline: a.Deadline, Value: 100})
	require.NoError(t, err)
	_, err = submit(t, n, env.user, escrow.PayloadTypeReveal, &escrow.RevealAttributes{ParamsHash: paramsHash, Params: params, Salt: salt, Attestation: a, Signatures: sigs})
	require.ErrorIs(t, err, escrow.ErrExecutionFailed)
	require.ErrorIs(t, err, ErrNoExecutionVenue)

	c, err := n.Commit(id)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusCommitted, c.Status)
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t)
	db, err := boltdb.New(filepath.Join(t.TempDir(), "riskgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	n := env.newNode(t, WithDB(db))
	other := test.RandomAddress()
	_, err = submit(t, n, env.user, bank.PayloadTypeTransfer, &bank.TransferAttributes{To: other, Amount: 250})
	require.NoError(t, err)
	info, err := n.Info()
	require.NoError(t, err)
	n.Close()

	recovered := env.newNode(t, WithDB(db))
	recoveredInfo, err := recovered.Info()
	require.NoError(t, err)
	require.Equal(t, info, recoveredInfo)
	acc, err := recovered.Account(other)
	require.NoError(t, err)
	require.EqualValues(t, 250, acc.Balance)
	nonce, err := recovered.Nonce(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce)

	// next transaction continues the event sequence
	rec, err := submit(t, recovered, env.user, bank.PayloadTypeTransfer, &bank.TransferAttributes{To: other, Amount: 1})
	require.NoError(t, err)
	require.EqualValues(t, 1, rec.ServerMetadata.Events[0].Seq)

	t.Run("different genesis", func(t *testing.T) {
		g := *env.genesis
		g.Domain.ChainID++
		_, err := New(&g, testlogger.New(t), WithDB(db))
		require.ErrorIs(t, err, ErrGenesisMismatch)
	})
}

func TestSubmitTx_PersistingFails(t *testing.T) {
	env := newTestEnv(t)
	db := memorydb.New()
	n := env.newNode(t, WithDB(db))
	other := test.RandomAddress()

	db.MockWriteError(errors.New("disk full"))
	tx := testtransaction.NewSigned(t, env.user, bank.PayloadTypeTransfer, 0, &bank.TransferAttributes{To: other, Amount: 100})
	_, err := n.SubmitTx(context.Background(), tx)
	require.ErrorIs(t, err, ErrPersistingFailed)
	require.ErrorContains(t, err, "disk full")

	acc, err := n.Account(other)
	require.NoError(t, err)
	require.Zero(t, acc.Balance)
	nonce, err := n.Nonce(env.userAddr)
	require.NoError(t, err)
	require.Zero(t, nonce)
	info, err := n.Info()
	require.NoError(t, err)
	require.Zero(t, info.Round)

	db.MockWriteError(nil)
	_, err = n.SubmitTx(context.Background(), tx)
	require.NoError(t, err)
	acc, err = n.Account(other)
	require.NoError(t, err)
	require.EqualValues(t, 100, acc.Balance)
}

// gatedDB runs beforeTx ahead of every DB transaction the node starts.
type gatedDB struct {
	keyvaluedb.KeyValueDB
	beforeTx func() error
}

func (db *gatedDB) StartTx() (keyvaluedb.DBTransaction, error) {
	if db.beforeTx != nil {
		if err := db.beforeTx(); err != nil {
			return nil, err
		}
	}
	return db.KeyValueDB.StartTx()
}

func TestQueries_ReadCommittedState(t *testing.T) {
	env := newTestEnv(t)
	db := &gatedDB{KeyValueDB: memorydb.New()}
	n := env.newNode(t, WithDB(db))

	persisting, release := make(chan struct{}), make(chan struct{})
	db.beforeTx = func() error {
		close(persisting)
		<-release
		return errors.New("disk full")
	}
	a, sigs := env.attest(t, 920_000)
	tx := testtransaction.NewSigned(t, env.user, reputation.PayloadTypeAttestWithScore, 0, &reputation.AttestWithScoreAttributes{Subject: env.userAddr, Attestation: a, Signatures: sigs})
	done := make(chan error, 1)
	go func() {
		_, err := n.SubmitTx(context.Background(), tx)
		done <- err
	}()

	// the attestation is executed but not yet persisted
	<-persisting
	fee, err := n.Fee(env.userAddr)
	require.NoError(t, err)
	require.Equal(t, tier.None, fee.Tier)
	require.EqualValues(t, 30, fee.FeeBps)
	gasInfo, err := n.GasAllowance(env.userAddr)
	require.NoError(t, err)
	require.Equal(t, tier.None, gasInfo.Tier)
	require.False(t, gasInfo.Eligible)
	require.Zero(t, gasInfo.Remaining)
	close(release)

	require.ErrorIs(t, <-done, ErrPersistingFailed)
	fee, err = n.Fee(env.userAddr)
	require.NoError(t, err)
	require.Equal(t, tier.None, fee.Tier)
	require.EqualValues(t, 30, fee.FeeBps)
}

func TestEscrow_RevealNotPersisted(t *testing.T) {
	env := newTestEnv(t)
	db := &gatedDB{KeyValueDB: memorydb.New()}
	var calls int
	venue := escrow.ExecutorFunc(func(_ context.Context, _ common.Hash, _ []byte, value uint64) (uint64, error) {
		calls++
		return value * 2, nil
	})
	now := testTime
	n := env.newNode(t, WithDB(db), WithExecutor(venue), WithClock(func() time.Time { return now }))

	params := []byte("swap")
	salt := test.RandomHash()
	a, sigs := env.attest(t, 920_000)
	paramsHash := crypto.Keccak256Hash(params)
	id, err := escrow.CommitmentID(env.userAddr, paramsHash, salt, a.Deadline)
	require.NoError(t, err)
	_, err = submit(t, n, env.user, escrow.PayloadTypeCommit, &escrow.CommitAttributes{ID: id, Deadline: a.Deadline, Value: 100})
	require.NoError(t, err)
	reveal := &escrow.RevealAttributes{ParamsHash: paramsHash, Params: params, Salt: salt, Attestation: a, Signatures: sigs}

	db.beforeTx = func() error { return errors.New("disk full") }
	_, err = submit(t, n, env.user, escrow.PayloadTypeReveal, reveal)
	require.ErrorIs(t, err, ErrPersistingFailed)
	require.Equal(t, 1, calls)
	c, err := n.Commit(id)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusCommitted, c.Status)
	require.EqualValues(t, 100, c.Value)
	db.beforeTx = nil

	// the value went to the venue, it can not be refunded
	now = testTime.Add(2 * time.Hour)
	_, err = submit(t, n, env.user, escrow.PayloadTypeRefund, &escrow.RefundAttributes{ID: id})
	require.ErrorIs(t, err, escrow.ErrAlreadyExecuted)

	rec, err := submit(t, n, env.user, escrow.PayloadTypeReveal, reveal)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Len(t, rec.ServerMetadata.Events, 1)
	require.EqualValues(t, 200, rec.ServerMetadata.Events[0].Fields["output"])
	c, err = n.Commit(id)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusRevealed, c.Status)
	require.EqualValues(t, 200, c.Output)
	acc, err := n.Account(env.userAddr)
	require.NoError(t, err)
	require.EqualValues(t, 900, acc.Balance)
}
