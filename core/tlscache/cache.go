package tlscache

import (
	"crypto/tls"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrymomot/certward/core/certstore"
)

// ErrBadCredentials is returned when a stored bundle cannot be assembled
// into a usable TLS certificate.
var ErrBadCredentials = errors.New("stored credentials do not form a valid certificate")

// Cache memoizes ready-to-serve TLS certificates per authorization id. It
// reads lazily from the credential store on first lookup and owns the
// constructed certificates outright; it never shares mutable state with the
// store.
//
// Entries are invalidated explicitly when an authorization id is revoked or
// superseded by renewal. The cache is safe for concurrent lookups; two
// first-lookups of the same uncached domain may both build a certificate,
// which is harmless because construction is pure and the last writer wins.
type Cache struct {
	store *certstore.Store

	mu       sync.RWMutex
	contexts map[string]*tls.Certificate
}

// New returns an empty cache backed by the given store.
func New(store *certstore.Store) *Cache {
	return &Cache{
		store:    store,
		contexts: make(map[string]*tls.Certificate),
	}
}

// GetSecureContext resolves a domain to its TLS certificate. It returns
// (nil, nil) for a domain with no active credentials, a cached certificate
// when one exists, and otherwise builds one from the stored bundle.
func (c *Cache) GetSecureContext(domain string) (*tls.Certificate, error) {
	authID, ok := c.store.AuthIDForDomain(domain)
	if !ok {
		return nil, nil
	}

	c.mu.RLock()
	cert, ok := c.contexts[authID]
	c.mu.RUnlock()
	if ok {
		return cert, nil
	}

	creds, ok := c.store.Credentials(authID)
	if !ok {
		// Domain pointer raced with a revocation; treat as unmapped.
		return nil, nil
	}

	built, err := buildCertificate(creds)
	if err != nil {
		return nil, errors.Join(ErrBadCredentials, err)
	}

	c.mu.Lock()
	c.contexts[authID] = built
	c.mu.Unlock()
	return built, nil
}

// GetCertificate selects a certificate for a TLS handshake by SNI. It is
// shaped to plug into tls.Config.GetCertificate. An unmapped server name
// yields (nil, nil), which lets the handshake fall back to any other
// certificate sources configured on the listener.
func (c *Cache) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	domain := hello.ServerName
	if idx := strings.LastIndex(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}
	if domain == "" {
		return nil, nil
	}
	return c.GetSecureContext(domain)
}

// TLSConfig returns a tls.Config that serves certificates from the cache.
func (c *Cache) TLSConfig() *tls.Config {
	return &tls.Config{GetCertificate: c.GetCertificate}
}

// Invalidate evicts the certificate cached for an authorization id. It is
// called on revocation and on renewal so stale material is never served.
func (c *Cache) Invalidate(authID string) {
	c.mu.Lock()
	delete(c.contexts, authID)
	c.mu.Unlock()
}

// Clear drops every cached certificate. Lookups rebuild from the store.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.contexts = make(map[string]*tls.Certificate)
	c.mu.Unlock()
}

// Len reports the number of cached certificates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.contexts)
}

// buildCertificate assembles the leaf certificate, issuer chain and private
// key of a bundle into a tls.Certificate.
func buildCertificate(creds certstore.Credentials) (*tls.Certificate, error) {
	chain := creds.Cert
	if creds.CA != "" {
		chain = creds.Cert + "\n" + creds.CA
	}

	cert, err := tls.X509KeyPair([]byte(chain), []byte(creds.Key))
	if err != nil {
		return nil, err
	}
	return &cert, nil
}
