package cmd

import "context"

type (
	Options struct {
		nodeRunFn nodeRunnable
	}

	Option func(*Options)

	// nodeRunnable is the function that is run after configuration is loaded.
	nodeRunnable func(ctx context.Context, flags *nodeRunFlags) error
)

// WithNodeRunFunc sets the function run by "node run" instead of starting the node.
func WithNodeRunFunc(fn nodeRunnable) Option {
	return func(o *Options) {
		o.nodeRunFn = fn
	}
}
