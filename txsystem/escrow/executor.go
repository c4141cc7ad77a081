package escrow

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

/*
Executor is the venue which executes a revealed commitment. It receives the
commitment id with the opaque params and the escrowed value and reports the
output amount. An error aborts the reveal.

The venue must execute an id at most once. An error returned after the
execution has actually happened (e.g. a timeout) allows a later reveal to
call the venue again with the same id.
*/
type Executor interface {
	Execute(ctx context.Context, id common.Hash, params []byte, value uint64) (output uint64, err error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, id common.Hash, params []byte, value uint64) (uint64, error)

func (f ExecutorFunc) Execute(ctx context.Context, id common.Hash, params []byte, value uint64) (uint64, error) {
	return f(ctx, id, params, value)
}
