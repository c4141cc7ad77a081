package types

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

type (
	StateReader interface {
		GetUnit(id types.UnitID, committed bool) (state.UnitData, error)
	}

	// ExecutionContext provides additional context and info for tx validation and execution.
	ExecutionContext interface {
		Context() context.Context
		// Caller is the address recovered from the auth proof of the transaction.
		Caller() common.Address
		// Now is the execution time in unix seconds, all deadlines are compared against it.
		Now() uint64
		GetUnit(id types.UnitID, committed bool) (state.UnitData, error)
		EmitEvent(e *types.Event)
		Events() []*types.Event
	}

	// TxExecutionContext - implementation of ExecutionContext interface for generic tx handler
	TxExecutionContext struct {
		ctx    context.Context
		state  StateReader
		caller common.Address
		now    uint64
		events []*types.Event
	}
)

func NewExecutionContext(ctx context.Context, s StateReader, caller common.Address, now uint64) *TxExecutionContext {
	return &TxExecutionContext{
		ctx:    ctx,
		state:  s,
		caller: caller,
		now:    now,
	}
}

func (ec *TxExecutionContext) Context() context.Context { return ec.ctx }

func (ec *TxExecutionContext) Caller() common.Address { return ec.caller }

func (ec *TxExecutionContext) Now() uint64 { return ec.now }

func (ec *TxExecutionContext) GetUnit(id types.UnitID, committed bool) (state.UnitData, error) {
	return ec.state.GetUnit(id, committed)
}

func (ec *TxExecutionContext) EmitEvent(e *types.Event) {
	ec.events = append(ec.events, e)
}

func (ec *TxExecutionContext) Events() []*types.Event {
	return ec.events
}
