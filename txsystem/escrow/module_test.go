package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/keyvaluedb/memorydb"
	test "github.com/riskgate-org/riskgate/testutils"
	testattestation "github.com/riskgate-org/riskgate/testutils/attestation"
	testlogger "github.com/riskgate-org/riskgate/testutils/logger"
	testtransaction "github.com/riskgate-org/riskgate/testutils/transaction"
	testtxsystem "github.com/riskgate-org/riskgate/testutils/txsystem"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

const now uint64 = 1_700_000_000

type mockExecutor struct {
	calls  int
	id     common.Hash
	params []byte
	value  uint64
	output uint64
	err    error
	hook   func(ctx context.Context) error
}

func (e *mockExecutor) Execute(ctx context.Context, id common.Hash, params []byte, value uint64) (uint64, error) {
	e.calls++
	e.id, e.params, e.value = id, params, value
	if e.hook != nil {
		if err := e.hook(ctx); err != nil {
			return 0, err
		}
	}
	return e.output, e.err
}

type testEnv struct {
	f       *testattestation.Fixture
	m       *Module
	exe     *testtxsystem.Executor
	venue   *mockExecutor
	journal *memorydb.MemoryDB
	bank    *bank.Ledger
	owner   common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := testattestation.NewFixture(t, 3, 2)
	venue := &mockExecutor{output: 77}
	journal := memorydb.New()
	m, err := NewModule(f.State, f.Verifier, venue, testlogger.New(t), WithJournal(NewJournal(journal)))
	require.NoError(t, err)
	owner := test.RandomAddress()
	require.NoError(t, f.State.Apply(bank.Credit(owner, 1000)))
	return &testEnv{f: f, m: m, exe: testtxsystem.NewExecutor(t, f.State, now, m), venue: venue, journal: journal, bank: bank.NewLedger(f.State), owner: owner}
}

func (e *testEnv) journalEntry(t *testing.T, in *intent) *JournalEntry {
	t.Helper()
	entry, found, err := e.m.journal.Entry(in.id)
	require.NoError(t, err)
	if !found {
		return nil
	}
	return entry
}

type intent struct {
	params     []byte
	paramsHash common.Hash
	salt       common.Hash
	deadline   uint64
	id         common.Hash
}

func (e *testEnv) newIntent(t *testing.T, deadline uint64) *intent {
	t.Helper()
	in := &intent{params: test.RandomBytes(40), salt: test.RandomHash(), deadline: deadline}
	in.paramsHash = crypto.Keccak256Hash(in.params)
	id, err := CommitmentID(e.owner, in.paramsHash, in.salt, deadline)
	require.NoError(t, err)
	in.id = id
	return in
}

func (e *testEnv) commit(t *testing.T, in *intent, value uint64) (*types.ServerMetadata, error) {
	t.Helper()
	return e.exe.Execute(t, e.owner, PayloadTypeCommit, &CommitAttributes{ID: in.id, Deadline: in.deadline, Value: value})
}

func (e *testEnv) revealAttr(t *testing.T, in *intent) *RevealAttributes {
	t.Helper()
	a := &attestation.Attestation{SubjectRef: in.id, Subject: e.owner, Score: 900_000, Threshold: 800_000, Nonce: 1, Deadline: in.deadline}
	return &RevealAttributes{Params: in.params, ParamsHash: in.paramsHash, Salt: in.salt, Attestation: a, Signatures: e.f.Sign(t, a)}
}

func (e *testEnv) reveal(t *testing.T, in *intent) (*types.ServerMetadata, error) {
	t.Helper()
	return e.exe.Execute(t, e.owner, PayloadTypeReveal, e.revealAttr(t, in))
}

func (e *testEnv) refund(t *testing.T, in *intent) (*types.ServerMetadata, error) {
	t.Helper()
	return e.exe.Execute(t, e.owner, PayloadTypeRefund, &RefundAttributes{ID: in.id})
}

func (e *testEnv) status(t *testing.T, in *intent) Status {
	t.Helper()
	c, found, err := e.m.Commit(in.id, false)
	require.NoError(t, err)
	require.True(t, found)
	return c.Status
}

func TestNewModule(t *testing.T) {
	f := testattestation.NewFixture(t, 1, 1)
	log := testlogger.New(t)
	venue := &mockExecutor{}
	_, err := NewModule(nil, f.Verifier, venue, log)
	require.EqualError(t, err, "state is nil")
	_, err = NewModule(f.State, nil, venue, log)
	require.EqualError(t, err, "attestation verifier is nil")
	_, err = NewModule(f.State, f.Verifier, nil, log)
	require.EqualError(t, err, "executor is nil")
	_, err = NewModule(f.State, f.Verifier, venue, nil)
	require.EqualError(t, err, "logger is nil")
	_, err = NewModule(f.State, f.Verifier, venue, log, WithJournal(nil))
	require.EqualError(t, err, "execution journal is nil")
}

func TestCommit(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, now+600)

	_, err := env.commit(t, in, 1001)
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)
	_, found, err := env.m.Commit(in.id, false)
	require.NoError(t, err)
	require.False(t, found)

	sm, err := env.commit(t, in, 400)
	require.NoError(t, err)
	require.Equal(t, []types.EventType{EventCommitCreated}, testtxsystem.EventTypes(sm))
	require.Equal(t, in.id, sm.Events[0].Ref)
	require.EqualValues(t, 600, env.bank.Balance(env.owner))
	c, found, err := env.m.Commit(in.id, false)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, &Commit{Owner: env.owner, Value: 400, Deadline: now + 600, Status: StatusCommitted}, c)

	_, err = env.commit(t, in, 1)
	require.ErrorIs(t, err, ErrCommitExists)
}

func TestReveal(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, now+600)
	_, err := env.commit(t, in, 400)
	require.NoError(t, err)

	t.Run("params hash mismatch", func(t *testing.T) {
		attr := env.revealAttr(t, in)
		attr.Params = []byte("other")
		_, err := env.exe.Execute(t, env.owner, PayloadTypeReveal, attr)
		require.ErrorIs(t, err, ErrParamsHashMismatch)
	})
	t.Run("other caller does not find the commitment", func(t *testing.T) {
		_, err := env.exe.Execute(t, test.RandomAddress(), PayloadTypeReveal, env.revealAttr(t, in))
		require.ErrorIs(t, err, ErrCommitNotFound)
	})
	t.Run("attestation with another deadline does not match", func(t *testing.T) {
		attr := env.revealAttr(t, in)
		attr.Attestation.Deadline++
		attr.Signatures = env.f.Sign(t, attr.Attestation)
		_, err := env.exe.Execute(t, env.owner, PayloadTypeReveal, attr)
		require.ErrorIs(t, err, ErrCommitNotFound)
	})
	t.Run("invalid attestation", func(t *testing.T) {
		attr := env.revealAttr(t, in)
		attr.Signatures = attr.Signatures[:1]
		_, err := env.exe.Execute(t, env.owner, PayloadTypeReveal, attr)
		require.ErrorIs(t, err, attestation.ErrInsufficientSignatures)
		require.Zero(t, env.venue.calls)
	})
	t.Run("executor failure keeps the commitment revealable", func(t *testing.T) {
		env.venue.err = errors.New("slippage")
		_, err := env.reveal(t, in)
		require.ErrorIs(t, err, ErrExecutionFailed)
		require.ErrorContains(t, err, "slippage")
		require.Equal(t, StatusCommitted, env.status(t, in))
		require.Nil(t, env.journalEntry(t, in))
		env.venue.err = nil
	})
	t.Run("ok", func(t *testing.T) {
		sm, err := env.reveal(t, in)
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRevealed}, testtxsystem.EventTypes(sm))
		require.EqualValues(t, 77, sm.Events[0].Fields["output"])
		require.Equal(t, in.id, env.venue.id)
		require.Equal(t, in.params, env.venue.params)
		require.EqualValues(t, 400, env.venue.value)
		require.Equal(t, &JournalEntry{Done: true, Output: 77}, env.journalEntry(t, in))
		c, _, err := env.m.Commit(in.id, false)
		require.NoError(t, err)
		require.Equal(t, StatusRevealed, c.Status)
		require.EqualValues(t, 77, c.Output)
	})
	t.Run("second reveal and refund fail", func(t *testing.T) {
		_, err := env.reveal(t, in)
		require.ErrorIs(t, err, ErrAlreadyRevealed)
		env.exe.Now = now + 601
		defer func() { env.exe.Now = now }()
		_, err = env.refund(t, in)
		require.ErrorIs(t, err, ErrAlreadyRevealed)
	})
}

func TestReveal_Expired(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, now+600)
	_, err := env.commit(t, in, 1)
	require.NoError(t, err)
	env.exe.Now = now + 601
	_, err = env.reveal(t, in)
	require.ErrorIs(t, err, ErrCommitExpired)
}

func TestRefund(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, now+600)
	_, err := env.commit(t, in, 400)
	require.NoError(t, err)

	t.Run("unknown commitment", func(t *testing.T) {
		_, err := env.exe.Execute(t, env.owner, PayloadTypeRefund, &RefundAttributes{ID: test.RandomHash()})
		require.ErrorIs(t, err, ErrCommitNotFound)
	})
	t.Run("not owner", func(t *testing.T) {
		env.exe.Now = now + 601
		defer func() { env.exe.Now = now }()
		_, err := env.exe.Execute(t, test.RandomAddress(), PayloadTypeRefund, &RefundAttributes{ID: in.id})
		require.ErrorIs(t, err, ErrNotOwner)
	})
	t.Run("before and at the deadline", func(t *testing.T) {
		for _, ts := range []uint64{now, now + 600} {
			env.exe.Now = ts
			_, err := env.refund(t, in)
			require.ErrorIs(t, err, ErrRefundTooEarly)
		}
		env.exe.Now = now
	})
	t.Run("after the deadline", func(t *testing.T) {
		env.exe.Now = now + 601
		defer func() { env.exe.Now = now }()
		sm, err := env.refund(t, in)
		require.NoError(t, err)
		require.Equal(t, []types.EventType{EventRefunded}, testtxsystem.EventTypes(sm))
		require.EqualValues(t, 1000, env.bank.Balance(env.owner))
		c, _, err := env.m.Commit(in.id, false)
		require.NoError(t, err)
		require.Equal(t, StatusRefunded, c.Status)
		require.Zero(t, c.Value)

		_, err = env.refund(t, in)
		require.ErrorIs(t, err, ErrAlreadyRefunded)
	})
	t.Run("refunded commitment can not be revealed or reused", func(t *testing.T) {
		_, err := env.reveal(t, in)
		require.ErrorIs(t, err, ErrAlreadyRefunded)
		_, err = env.commit(t, in, 1)
		require.ErrorIs(t, err, ErrCommitExists)
	})
}

func TestRefund_NoDeadline(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, 0)
	_, err := env.commit(t, in, 1)
	require.NoError(t, err)
	env.exe.Now = now * 2
	_, err = env.refund(t, in)
	require.ErrorIs(t, err, ErrRefundTooEarly)
	_, err = env.reveal(t, in)
	require.NoError(t, err)
}

func TestReveal_ReentrantCall(t *testing.T) {
	env := newTestEnv(t)
	in := env.newIntent(t, now+600)
	_, err := env.commit(t, in, 400)
	require.NoError(t, err)

	env.venue.hook = func(ctx context.Context) error {
		// the venue tries to refund the commitment while it is being revealed
		tx := testtransaction.NewTransactionOrder(t,
			testtransaction.WithPayloadType(PayloadTypeRefund),
			testtransaction.WithAttributes(&RefundAttributes{ID: in.id}),
		)
		exeCtx := txtypes.NewExecutionContext(ctx, env.f.State, env.owner, now+601)
		_, err := txtypes.TxExecutors(env.m.TxHandlers()).ValidateAndExecute(tx, exeCtx)
		return err
	}
	_, err = env.reveal(t, in)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.ErrorIs(t, err, ErrReentrantCall)
	require.Equal(t, StatusCommitted, env.status(t, in))
	require.EqualValues(t, 600, env.bank.Balance(env.owner))

	env.venue.hook = nil
	_, err = env.reveal(t, in)
	require.NoError(t, err)
}

func TestReveal_ExecutionJournal(t *testing.T) {
	t.Run("completed execution is not repeated", func(t *testing.T) {
		env := newTestEnv(t)
		in := env.newIntent(t, now+600)
		_, err := env.commit(t, in, 400)
		require.NoError(t, err)
		// the executor ran but the revealed state was lost
		require.NoError(t, env.m.journal.begin(in.id))
		require.NoError(t, env.m.journal.complete(in.id, 55))

		env.exe.Now = now + 601
		_, err = env.refund(t, in)
		require.ErrorIs(t, err, ErrAlreadyExecuted)

		// deadline was checked before the execution
		sm, err := env.reveal(t, in)
		require.NoError(t, err)
		require.Zero(t, env.venue.calls)
		require.Equal(t, []types.EventType{EventRevealed}, testtxsystem.EventTypes(sm))
		require.EqualValues(t, 55, sm.Events[0].Fields["output"])
		require.EqualValues(t, 1, sm.Events[0].Fields["fromJournal"])
		c, _, err := env.m.Commit(in.id, false)
		require.NoError(t, err)
		require.Equal(t, &Commit{Owner: env.owner, Value: 400, Deadline: now + 600, Status: StatusRevealed, Output: 55}, c)
		require.EqualValues(t, 600, env.bank.Balance(env.owner))
	})
	t.Run("pending execution blocks reveal and refund", func(t *testing.T) {
		env := newTestEnv(t)
		in := env.newIntent(t, now+600)
		_, err := env.commit(t, in, 400)
		require.NoError(t, err)
		require.NoError(t, env.m.journal.begin(in.id))

		_, err = env.reveal(t, in)
		require.ErrorIs(t, err, ErrExecutionPending)
		env.exe.Now = now + 601
		_, err = env.refund(t, in)
		require.ErrorIs(t, err, ErrExecutionPending)
		require.Zero(t, env.venue.calls)
		require.Equal(t, StatusCommitted, env.status(t, in))
	})
	t.Run("executor is not called when the journal can not be written", func(t *testing.T) {
		env := newTestEnv(t)
		in := env.newIntent(t, now+600)
		_, err := env.commit(t, in, 400)
		require.NoError(t, err)
		env.journal.MockWriteError(errors.New("disk full"))

		_, err = env.reveal(t, in)
		require.ErrorContains(t, err, "disk full")
		require.Zero(t, env.venue.calls)
		require.Equal(t, StatusCommitted, env.status(t, in))

		env.journal.MockWriteError(nil)
		_, err = env.reveal(t, in)
		require.NoError(t, err)
		require.Equal(t, 1, env.venue.calls)
	})
	t.Run("output is kept when completing the journal fails", func(t *testing.T) {
		env := newTestEnv(t)
		in := env.newIntent(t, now+600)
		_, err := env.commit(t, in, 400)
		require.NoError(t, err)
		env.venue.hook = func(context.Context) error {
			env.journal.MockWriteError(errors.New("disk full"))
			return nil
		}

		_, err = env.reveal(t, in)
		require.ErrorContains(t, err, "disk full")
		require.Equal(t, 1, env.venue.calls)
		require.Equal(t, &JournalEntry{}, env.journalEntry(t, in))

		env.journal.MockWriteError(nil)
		env.venue.hook = nil
		_, err = env.reveal(t, in)
		require.ErrorIs(t, err, ErrExecutionPending)
		require.Equal(t, 1, env.venue.calls)
	})
}

func TestJournal_Abort(t *testing.T) {
	j := NewJournal(memorydb.New())
	id := test.RandomHash()
	require.ErrorIs(t, j.abort(id), errJournalEntryMissing)

	require.NoError(t, j.begin(id))
	require.NoError(t, j.abort(id))
	_, found, err := j.Entry(id)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, j.complete(id, 1))
	require.ErrorContains(t, j.abort(id), "already complete")
	e, found, err := j.Entry(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, &JournalEntry{Done: true, Output: 1}, e)
}

func TestExecutorFunc(t *testing.T) {
	f := ExecutorFunc(func(ctx context.Context, id common.Hash, params []byte, value uint64) (uint64, error) {
		return value * 2, nil
	})
	out, err := f.Execute(context.Background(), test.RandomHash(), nil, 21)
	require.NoError(t, err)
	require.EqualValues(t, 42, out)
}
