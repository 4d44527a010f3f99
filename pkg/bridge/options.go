package bridge

import "github.com/hashicorp/go-hclog"

type options struct {
	respondToUnidentified bool
	respondOnPanic        bool
	strictRegistration    bool
	logger                hclog.Logger
}

// Option customizes an Instance at creation.
type Option func(*options)

// WithRespondToUnidentified makes undecodable requests without a
// recoverable id produce an error envelope with a null id instead of silence.
func WithRespondToUnidentified(enabled bool) Option {
	return func(o *options) { o.respondToUnidentified = enabled }
}

// WithRespondOnPanic makes a contained handler panic produce an internal
// error reply when the request id is known.
func WithRespondOnPanic(enabled bool) Option {
	return func(o *options) { o.respondOnPanic = enabled }
}

// WithStrictRegistration refuses plugins that register a method name twice.
func WithStrictRegistration(enabled bool) Option {
	return func(o *options) { o.strictRegistration = enabled }
}

// WithLogger replaces the per-instance logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) { o.logger = l }
}
