package node

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/keyvaluedb/memorydb"
	"github.com/riskgate-org/riskgate/metrics"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
)

var ErrNoExecutionVenue = errors.New("execution venue is not configured")

type (
	configuration struct {
		db       keyvaluedb.KeyValueDB
		clock    func() time.Time
		executor escrow.Executor
		metrics  *metrics.Registry
	}

	Option func(c *configuration)
)

func defaultConfiguration() *configuration {
	return &configuration{
		db:    memorydb.New(),
		clock: time.Now,
		executor: escrow.ExecutorFunc(func(context.Context, common.Hash, []byte, uint64) (uint64, error) {
			return 0, ErrNoExecutionVenue
		}),
		metrics: metrics.NewRegistry(false),
	}
}

// WithDB sets the persistent store of the node, in-memory store is used by default.
func WithDB(db keyvaluedb.KeyValueDB) Option {
	return func(c *configuration) {
		c.db = db
	}
}

// WithClock sets the source of the execution time.
func WithClock(clock func() time.Time) Option {
	return func(c *configuration) {
		c.clock = clock
	}
}

// WithExecutor sets the venue which executes revealed intents.
func WithExecutor(executor escrow.Executor) Option {
	return func(c *configuration) {
		c.executor = executor
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(c *configuration) {
		c.metrics = r
	}
}
