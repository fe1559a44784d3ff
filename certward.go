package certward

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/certward/core/certstore"
	"github.com/dmitrymomot/certward/core/challenge"
	"github.com/dmitrymomot/certward/core/config"
	"github.com/dmitrymomot/certward/core/lifecycle"
	"github.com/dmitrymomot/certward/core/logger"
	"github.com/dmitrymomot/certward/core/tlscache"
)

// Config is the recognized configuration surface of the subsystem.
type Config struct {
	// StatePath locates the persisted certificate state file. Required.
	StatePath string `env:"CERTWARD_STATE_PATH,required"`
	// DirectoryURL overrides the ACME directory (Let's Encrypt production
	// by default). Use the staging directory in development.
	DirectoryURL string `env:"CERTWARD_DIRECTORY_URL"`
	// RSAKeySize is the size of generated account and domain keys.
	RSAKeySize int `env:"CERTWARD_RSA_KEY_SIZE" envDefault:"2048"`
	// SaveDebounce is the quiet window for coalescing state writes.
	SaveDebounce time.Duration `env:"CERTWARD_SAVE_DEBOUNCE" envDefault:"5s"`
	// Debug enables verbose collaborator logging.
	Debug bool `env:"CERTWARD_DEBUG" envDefault:"false"`
}

// Manager assembles the credential store, challenge registry, TLS context
// cache and lifecycle orchestrator into one handle. Orchestrator operations
// (Certify, Renew, Revoke, ...) are promoted onto the Manager.
type Manager struct {
	*lifecycle.Orchestrator

	store      *certstore.Store
	challenges *challenge.Registry
	contexts   *tlscache.Cache
}

// Option configures a Manager during New.
type Option func(*options)

type options struct {
	log     *slog.Logger
	factory lifecycle.ClientFactory
}

// WithLogger sets the logger shared by all components. When unset, a
// discard logger is used unless Config.Debug is on, in which case a debug
// text logger writing to stderr is created.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClientFactory injects a custom ACME client factory, mainly for tests.
func WithClientFactory(factory lifecycle.ClientFactory) Option {
	return func(o *options) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// New opens the state file and wires all components together with explicit
// dependencies. Call Close on shutdown to drain the pending state write.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.StatePath == "" {
		return nil, errors.New("certward: state path is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		if cfg.Debug {
			log = logger.New(logger.Config{Debug: true})
		} else {
			log = logger.Discard()
		}
	}

	store, err := certstore.Open(cfg.StatePath,
		certstore.WithLogger(log),
		certstore.WithSaveDebounce(cfg.SaveDebounce),
	)
	if err != nil {
		return nil, err
	}

	contexts := tlscache.New(store)
	challenges := challenge.NewRegistry(challenge.WithLogger(log))

	lcOpts := []lifecycle.Option{
		lifecycle.WithDirectoryURL(cfg.DirectoryURL),
		lifecycle.WithRSAKeySize(cfg.RSAKeySize),
		lifecycle.WithLogger(log),
	}
	if o.factory != nil {
		lcOpts = append(lcOpts, lifecycle.WithClientFactory(o.factory))
	}

	orch, err := lifecycle.New(store, contexts, challenges, lcOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Manager{
		Orchestrator: orch,
		store:        store,
		challenges:   challenges,
		contexts:     contexts,
	}, nil
}

// NewFromEnv loads Config from the environment and calls New.
func NewFromEnv(opts ...Option) (*Manager, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Store exposes the credential store, e.g. for direct inspection in tools.
func (m *Manager) Store() *certstore.Store {
	return m.store
}

// GetChallenge answers a CA validation request path with the expected
// authorization value. This is the plaintext serving boundary.
func (m *Manager) GetChallenge(requestPath string) (string, bool) {
	return m.challenges.Lookup(requestPath)
}

// GetSecureContext resolves a domain to its TLS certificate, (nil, nil)
// when the domain has no active credentials. This is the SNI serving
// boundary.
func (m *Manager) GetSecureContext(domain string) (*tls.Certificate, error) {
	return m.contexts.GetSecureContext(domain)
}

// HTTPHandler serves HTTP-01 challenge responses at the well-known path and
// passes everything else to fallback. Mount it on the plaintext listener.
func (m *Manager) HTTPHandler(fallback http.Handler) http.Handler {
	return m.challenges.Handler(fallback)
}

// TLSConfig returns a tls.Config selecting certificates by SNI from the
// context cache.
func (m *Manager) TLSConfig() *tls.Config {
	return m.contexts.TLSConfig()
}

// Close flushes the pending debounced state write. Without it the last few
// seconds of mutations can be lost on shutdown.
func (m *Manager) Close() error {
	return m.store.Close()
}
