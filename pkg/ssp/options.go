package ssp

import "log/slog"

// Option configures a Parser using the functional options pattern.
type Option func(*parserConfig)

// parserConfig holds the configuration applied by Init.
type parserConfig struct {
	observers []Observer
}

// applyOptions applies functional options to a fresh parserConfig.
func applyOptions(opts []Option) *parserConfig {
	cfg := &parserConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithObserver adds an observer notified at each step.
// If o is nil, this option has no effect.
// Several WithObserver options are notified in the order given.
func WithObserver(o Observer) Option {
	return func(c *parserConfig) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger traces parser activity on logger at Debug level.
// If logger is nil, tracing is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *parserConfig) {
		if o := NewLogObserver(logger); o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
