package escrow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

func (m *Module) validateCommitTx(tx *types.TransactionOrder, attr *CommitAttributes, exeCtx txtypes.ExecutionContext) error {
	_, found, err := getCommit(exeCtx, attr.ID, false)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %s", ErrCommitExists, attr.ID)
	}
	return nil
}

func (m *Module) executeCommitTx(tx *types.TransactionOrder, attr *CommitAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	owner := exeCtx.Caller()
	c := &Commit{Owner: owner, Value: attr.Value, Deadline: attr.Deadline, Status: StatusCommitted}
	if err := m.state.Apply(bank.Debit(owner, attr.Value), state.AddUnit(CommitUnitID(attr.ID), c)); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventCommitCreated, owner).
		WithRef(attr.ID).
		With("value", attr.Value).
		With("deadline", attr.Deadline))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{CommitUnitID(attr.ID), bank.AccountID(owner)}}, nil
}

func (m *Module) validateRevealTx(tx *types.TransactionOrder, attr *RevealAttributes, exeCtx txtypes.ExecutionContext) error {
	if attr.Attestation == nil {
		return fmt.Errorf("attestation: %w", attestation.ErrAttestationIsNil)
	}
	if crypto.Keccak256Hash(attr.Params) != attr.ParamsHash {
		return ErrParamsHashMismatch
	}
	return nil
}

/*
executeRevealTx marks the commitment revealed and hands the value to the
executor. The call is recorded in the journal before it is made. When the
executor fails the entry is removed, the state changes are rolled back and the
commitment stays revealable until its deadline.

A completed journal entry means the executor already ran for this commitment
but the reveal was not persisted. The reveal is then finished with the
recorded output without calling the executor, the deadline and attestation
were checked when the entry was written.
*/
func (m *Module) executeRevealTx(tx *types.TransactionOrder, attr *RevealAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller, now := exeCtx.Caller(), exeCtx.Now()
	id, err := CommitmentID(caller, attr.ParamsHash, attr.Salt, attr.Attestation.Deadline)
	if err != nil {
		return nil, err
	}
	c, err := m.committed(exeCtx, id)
	if err != nil {
		return nil, err
	}
	if c.Owner != caller {
		return nil, ErrNotOwner
	}
	entry, executed, err := m.journal.Entry(id)
	if err != nil {
		return nil, err
	}
	switch {
	case executed && !entry.Done:
		return nil, fmt.Errorf("%w: %s", ErrExecutionPending, id)
	case executed:
		m.log.Info().EmbedObject(logger.UnitID(CommitUnitID(id))).Msg("completing reveal from execution journal")
		return m.finishReveal(exeCtx, id, c, entry.Output, true)
	}

	if c.Deadline != 0 && now > c.Deadline {
		return nil, fmt.Errorf("%w: deadline %d, now %d", ErrCommitExpired, c.Deadline, now)
	}
	if err := m.verifier.Check(attr.Attestation, attr.Signatures, now); err != nil {
		return nil, fmt.Errorf("attestation: %w", err)
	}

	// status changes before the executor is called, a nested reveal or refund finds it revealed
	if err := m.state.Apply(setStatus(CommitUnitID(id), StatusRevealed)); err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}
	if err := m.journal.begin(id); err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}
	output, err := m.executor.Execute(exeCtx.Context(), id, attr.Params, c.Value)
	if err != nil {
		m.log.Warn().EmbedObject(logger.UnitID(CommitUnitID(id))).Err(err).Msg("executor failed")
		if aerr := m.journal.abort(id); aerr != nil {
			m.log.Error().EmbedObject(logger.UnitID(CommitUnitID(id))).Err(aerr).Msg("execution journal entry stays pending")
		}
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}
	if err := m.journal.complete(id, output); err != nil {
		// the entry stays pending, later reveals and refunds are rejected
		m.log.Error().EmbedObject(logger.UnitID(CommitUnitID(id))).Err(err).Uint64("output", output).Msg("executor succeeded but journal update failed")
		return nil, fmt.Errorf("reveal: %w", err)
	}
	return m.finishReveal(exeCtx, id, c, output, false)
}

func (m *Module) finishReveal(exeCtx txtypes.ExecutionContext, id common.Hash, c *Commit, output uint64, fromJournal bool) (*types.ServerMetadata, error) {
	unitID := CommitUnitID(id)
	if err := m.state.Apply(updateCommit(unitID, func(c *Commit) {
		c.Status = StatusRevealed
		c.Output = output
	})); err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}
	e := types.NewEvent(EventRevealed, c.Owner).
		WithRef(id).
		With("value", c.Value).
		With("output", output)
	if fromJournal {
		e = e.With("fromJournal", 1)
	}
	exeCtx.EmitEvent(e)
	return &types.ServerMetadata{TargetUnits: []types.UnitID{unitID}}, nil
}

func (m *Module) validateRefundTx(tx *types.TransactionOrder, attr *RefundAttributes, exeCtx txtypes.ExecutionContext) error {
	return nil
}

// executeRefundTx zeroes the escrowed value and marks the commitment refunded
// before the owner is credited.
func (m *Module) executeRefundTx(tx *types.TransactionOrder, attr *RefundAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	caller, now := exeCtx.Caller(), exeCtx.Now()
	c, err := m.committed(exeCtx, attr.ID)
	if err != nil {
		return nil, err
	}
	if c.Owner != caller {
		return nil, ErrNotOwner
	}
	if c.Deadline == 0 || now <= c.Deadline {
		return nil, fmt.Errorf("%w: deadline %d, now %d", ErrRefundTooEarly, c.Deadline, now)
	}
	entry, executed, err := m.journal.Entry(attr.ID)
	if err != nil {
		return nil, err
	}
	if executed {
		if !entry.Done {
			return nil, fmt.Errorf("%w: %s", ErrExecutionPending, attr.ID)
		}
		return nil, fmt.Errorf("%w: %s, reveal it to finish", ErrAlreadyExecuted, attr.ID)
	}
	unitID := CommitUnitID(attr.ID)
	if err := m.state.Apply(setStatus(unitID, StatusRefunded), bank.Credit(c.Owner, c.Value)); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	exeCtx.EmitEvent(types.NewEvent(EventRefunded, caller).WithRef(attr.ID).With("value", c.Value))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{unitID, bank.AccountID(c.Owner)}}, nil
}

// committed returns the commitment when it exists and is in Committed status.
func (m *Module) committed(s txtypes.StateReader, id common.Hash) (*Commit, error) {
	c, found, err := getCommit(s, id, false)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
	}
	switch c.Status {
	case StatusCommitted:
		return c, nil
	case StatusRevealed:
		return nil, ErrAlreadyRevealed
	case StatusRefunded:
		return nil, ErrAlreadyRefunded
	}
	return nil, fmt.Errorf("invalid commitment status %s", c.Status)
}

func setStatus(id types.UnitID, status Status) state.Action {
	return updateCommit(id, func(c *Commit) {
		c.Status = status
		if status == StatusRefunded {
			c.Value = 0
		}
	})
}

func updateCommit(id types.UnitID, f func(c *Commit)) state.Action {
	return state.UpdateUnitData(id, func(data state.UnitData) (state.UnitData, error) {
		c, ok := data.(*Commit)
		if !ok {
			return nil, fmt.Errorf("invalid unit data type %T", data)
		}
		f(c)
		return c, nil
	})
}
