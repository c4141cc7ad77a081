// Package txsystem contains helpers for executing module transactions in tests
// without the authentication of the generic tx system.
package txsystem

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	testtransaction "github.com/riskgate-org/riskgate/testutils/transaction"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

// Executor runs transactions of a single module against the state as the
// given caller. Like the generic tx system every transaction runs inside a
// savepoint which is rolled back when the transaction fails.
type Executor struct {
	State     *state.State
	Executors txtypes.TxExecutors
	Now       uint64
}

func NewExecutor(t testing.TB, s *state.State, now uint64, modules ...txtypes.Module) *Executor {
	t.Helper()
	executors := make(txtypes.TxExecutors)
	for _, m := range modules {
		if err := executors.Add(m.TxHandlers()); err != nil {
			t.Fatalf("registering tx handlers: %v", err)
		}
	}
	return &Executor{State: s, Executors: executors, Now: now}
}

// Execute runs the transaction of type txType with given attributes, events
// emitted by the transaction are returned in the server metadata.
func (e *Executor) Execute(t testing.TB, caller common.Address, txType string, attr any) (*types.ServerMetadata, error) {
	t.Helper()
	tx := testtransaction.NewTransactionOrder(t,
		testtransaction.WithPayloadType(txType),
		testtransaction.WithAttributes(attr),
	)
	exeCtx := txtypes.NewExecutionContext(context.Background(), e.State, caller, e.Now)
	id := e.State.Savepoint()
	sm, err := e.Executors.ValidateAndExecute(tx, exeCtx)
	if err != nil {
		e.State.RollbackToSavepoint(id)
		return nil, err
	}
	e.State.ReleaseToSavepoint(id)
	if sm == nil {
		sm = &types.ServerMetadata{}
	}
	sm.Events = append(sm.Events, exeCtx.Events()...)
	return sm, nil
}

// Events returns types of the events in server metadata.
func EventTypes(sm *types.ServerMetadata) []types.EventType {
	var res []types.EventType
	for _, e := range sm.GetEvents() {
		res = append(res, e.Type)
	}
	return res
}
