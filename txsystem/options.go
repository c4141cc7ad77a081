package txsystem

import (
	"time"

	"github.com/riskgate-org/riskgate/state"
)

type (
	// Option configures a GenericTxSystem.
	Option func(*txSystemConfig)

	txSystemConfig struct {
		state *state.State
		// now returns the execution time in unix seconds.
		now func() uint64
	}
)

func defaultConfig() *txSystemConfig {
	return &txSystemConfig{
		state: state.NewEmptyState(),
		now:   unixSeconds(time.Now),
	}
}

// WithState runs the modules on top of an existing state, e.g. one restored
// from a snapshot.
func WithState(s *state.State) Option {
	return func(c *txSystemConfig) {
		c.state = s
	}
}

// WithClock sets the source of the execution time, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(c *txSystemConfig) {
		c.now = unixSeconds(clock)
	}
}

func unixSeconds(clock func() time.Time) func() uint64 {
	return func() uint64 {
		return uint64(clock().Unix())
	}
}
