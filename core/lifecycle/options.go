package lifecycle

import "log/slog"

// Option configures an Orchestrator during initialization.
type Option func(*Orchestrator)

// WithDirectoryURL overrides the ACME directory URL (defaults to Let's
// Encrypt production). Point it at the staging directory in development.
func WithDirectoryURL(url string) Option {
	return func(o *Orchestrator) {
		if url != "" {
			o.directoryURL = url
		}
	}
}

// WithRSAKeySize sets the size of generated account and domain keys.
func WithRSAKeySize(bits int) Option {
	return func(o *Orchestrator) {
		if bits > 0 {
			o.rsaKeySize = bits
		}
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClientFactory sets a custom ACME client factory. This is primarily
// useful for testing with mock clients, but can also wrap the real client
// with retries or instrumentation.
func WithClientFactory(factory ClientFactory) Option {
	return func(o *Orchestrator) {
		if factory != nil {
			o.factory = factory
		}
	}
}
