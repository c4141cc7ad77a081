package types

import (
	"fmt"

	"github.com/riskgate-org/riskgate/types"
)

type (
	Module interface {
		TxHandlers() map[string]TxExecutor
	}

	TxHandler[A any] struct {
		Execute  GenericExecuteFunc[A]
		Validate GenericValidateFunc[A]
	}

	TxExecutor interface {
		ValidateTx(tx *types.TransactionOrder, exeCtx ExecutionContext) (any, error)
		ExecuteTxWithAttr(tx *types.TransactionOrder, attributes any, exeCtx ExecutionContext) (*types.ServerMetadata, error)
	}

	TxExecutors map[string]TxExecutor

	GenericExecuteFunc[A any] func(tx *types.TransactionOrder, attributes *A, exeCtx ExecutionContext) (*types.ServerMetadata, error)

	GenericValidateFunc[A any] func(tx *types.TransactionOrder, attributes *A, exeCtx ExecutionContext) error
)

// NewTxHandler creates handler for attributes of type A, validate func may be nil.
func NewTxHandler[A any](v GenericValidateFunc[A], e GenericExecuteFunc[A]) *TxHandler[A] {
	return &TxHandler[A]{Validate: v, Execute: e}
}

func (t *TxHandler[A]) ValidateTx(txo *types.TransactionOrder, exeCtx ExecutionContext) (any, error) {
	attr := new(A)
	if err := txo.UnmarshalAttributes(attr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if t.Validate != nil {
		if err := t.Validate(txo, attr, exeCtx); err != nil {
			return nil, err
		}
	}
	return attr, nil
}

func (t *TxHandler[A]) ExecuteTxWithAttr(txo *types.TransactionOrder, attr any, exeCtx ExecutionContext) (*types.ServerMetadata, error) {
	txAttr, ok := attr.(*A)
	if !ok {
		return nil, fmt.Errorf("incorrect attribute type: %T for tx order %s", attr, txo.PayloadType())
	}
	return t.Execute(txo, txAttr, exeCtx)
}

// ValidateAndExecute decodes the attributes once, validates and executes the
// order with the handler of its payload type.
func (h TxExecutors) ValidateAndExecute(txo *types.TransactionOrder, exeCtx ExecutionContext) (*types.ServerMetadata, error) {
	handler, found := h[txo.PayloadType()]
	if !found {
		return nil, fmt.Errorf("unknown transaction type %s", txo.PayloadType())
	}
	attr, err := handler.ValidateTx(txo, exeCtx)
	if err != nil {
		return nil, fmt.Errorf("'%s' validation failed: %w", txo.PayloadType(), err)
	}
	sm, err := handler.ExecuteTxWithAttr(txo, attr, exeCtx)
	if err != nil {
		return nil, fmt.Errorf("'%s' execution failed: %w", txo.PayloadType(), err)
	}
	return sm, nil
}

func (h TxExecutors) Add(src TxExecutors) error {
	for name, handler := range src {
		if name == "" {
			return fmt.Errorf("tx executor must have non-empty tx type name")
		}
		if handler == nil {
			return fmt.Errorf("tx executor must not be nil (%s)", name)
		}
		if _, ok := h[name]; ok {
			return fmt.Errorf("tx executor for %q is already registered", name)
		}
		h[name] = handler
	}
	return nil
}
