package quantization

import "log/slog"

const defaultSeed = 1234

type options struct {
	seed   int64
	logger *slog.Logger
}

// Option configures ProductQuantizer construction.
type Option func(*options)

// WithSeed sets the seed of the quantizer's private random source. Training
// is deterministic for a given seed and training set.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithLogger sets the structured logger used for training progress.
//
// If nil is passed, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		o.logger = logger
	}
}
