package challenge

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/dmitrymomot/certward/core/logger"
)

// WellKnownPrefix is the path prefix at which HTTP-01 challenge responses
// must be served for CA validation requests.
const WellKnownPrefix = "/.well-known/acme-challenge/"

// Registry holds the challenge tokens of in-flight issuances. Entries exist
// only between Present and CleanUp of one issuance; the registry is
// process-local and never persisted.
//
// Registry implements lego's challenge.Provider, so the ACME client writes
// tokens into it directly while solving HTTP-01 challenges.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]string

	log *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for challenge lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry returns an empty challenge registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tokens: make(map[string]string),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Set publishes the expected authorization value for a challenge token.
func (r *Registry) Set(token, keyAuth string) {
	r.mu.Lock()
	r.tokens[token] = keyAuth
	r.mu.Unlock()
}

// Remove withdraws a challenge token. Removing an absent token is a no-op.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.tokens, token)
	r.mu.Unlock()
}

// Lookup resolves an inbound request path to the expected authorization
// value. Paths outside WellKnownPrefix and unknown tokens miss.
func (r *Registry) Lookup(requestPath string) (string, bool) {
	token, ok := strings.CutPrefix(requestPath, WellKnownPrefix)
	if !ok || token == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	keyAuth, ok := r.tokens[token]
	return keyAuth, ok
}

// Len reports the number of currently published tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// Present publishes a challenge token. It implements lego's
// challenge.Provider and is called by the ACME client during issuance.
func (r *Registry) Present(domain, token, keyAuth string) error {
	r.Set(token, keyAuth)
	r.log.Debug("challenge published",
		logger.Component("challenge"),
		logger.Domain(domain),
		logger.Token(token))
	return nil
}

// CleanUp withdraws a challenge token once the CA has validated it or the
// issuance was abandoned. It implements lego's challenge.Provider.
func (r *Registry) CleanUp(domain, token, keyAuth string) error {
	r.Remove(token)
	r.log.Debug("challenge removed",
		logger.Component("challenge"),
		logger.Domain(domain),
		logger.Token(token))
	return nil
}

// Handler serves published challenge tokens at WellKnownPrefix as
// text/plain. Requests for anything else fall through to fallback, or 404
// when fallback is nil.
func (r *Registry) Handler(fallback http.Handler) http.Handler {
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		keyAuth, ok := r.Lookup(req.URL.Path)
		if !ok {
			fallback.ServeHTTP(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(keyAuth))
	})
}
