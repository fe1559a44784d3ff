package certstore

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/dmitrymomot/certward/core/logger"
)

// DefaultSaveDebounce is the quiet window during which repeated Save calls
// coalesce into a single durable write.
const DefaultSaveDebounce = 5 * time.Second

// Store is the single source of truth for durable certificate state: the CA
// account, the domain→authorization-id map, and the authorization-id→bundle
// map. All mutations are applied under one lock so no reader ever observes a
// domain pointing at a bundle that has not been written, or vice versa.
//
// Writes to disk are debounced: the first Save after a mutation arms a timer,
// and further Saves within the window are no-ops. The timer is not reset by
// subsequent calls, so persistence lags the last mutation by at most the
// debounce window. Call Flush (or Close) on shutdown to drain a pending write.
type Store struct {
	mu   sync.RWMutex
	path string
	rec  record

	debounce time.Duration
	timer    *time.Timer
	pending  bool
	writeErr error

	log *slog.Logger
}

// Option configures a Store during Open.
type Option func(*Store)

// WithLogger sets the logger used for persistence events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSaveDebounce overrides the debounce window. Values <= 0 keep the default.
func WithSaveDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// Open reads the state file at path if it exists and parses it into memory.
// A missing file initializes an empty record. A file that exists but cannot
// be read or parsed fails with ErrCorruptState.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		rec:      newRecord(),
		debounce: DefaultSaveDebounce,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run, nothing persisted yet.
	case err != nil:
		return nil, errors.Join(ErrCorruptState, err)
	default:
		if err := json.Unmarshal(data, &s.rec); err != nil {
			return nil, errors.Join(ErrCorruptState, err)
		}
		s.rec.normalize()
	}

	s.log.Debug("certificate state loaded",
		logger.Component("certstore"),
		slog.String("path", path),
		logger.Count("domains", len(s.rec.Domains)),
		logger.Count("credentials", len(s.rec.Auth)))

	return s, nil
}

// Account returns the stored CA account, if any.
func (s *Store) Account() (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rec.Account == nil {
		return Account{}, false
	}
	return *s.rec.Account, true
}

// SetAccount replaces the stored CA account and schedules a durable write.
func (s *Store) SetAccount(acc Account) error {
	s.mu.Lock()
	s.rec.Account = &acc
	s.mu.Unlock()
	return s.Save()
}

// Domains returns a copy of the domain→authorization-id map.
func (s *Store) Domains() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.rec.Domains)
}

// DomainsFor returns every domain currently mapped to the authorization id.
func (s *Store) DomainsFor(authID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var domains []string
	for domain, id := range s.rec.Domains {
		if id == authID {
			domains = append(domains, domain)
		}
	}
	return domains
}

// AuthIDs returns every authorization id with a stored bundle.
func (s *Store) AuthIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.rec.Auth))
	for id := range s.rec.Auth {
		ids = append(ids, id)
	}
	return ids
}

// Auth returns a copy of the authorization-id→credentials map.
func (s *Store) Auth() map[string]Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.rec.Auth)
}

// Credentials returns the bundle stored under the authorization id.
func (s *Store) Credentials(authID string) (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds, ok := s.rec.Auth[authID]
	return creds, ok
}

// CredentialsForDomain resolves a domain to its bundle through the domain map.
func (s *Store) CredentialsForDomain(domain string) (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authID, ok := s.rec.Domains[domain]
	if !ok {
		return Credentials{}, false
	}
	creds, ok := s.rec.Auth[authID]
	return creds, ok
}

// AuthIDForDomain resolves a domain to its authorization id.
func (s *Store) AuthIDForDomain(domain string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authID, ok := s.rec.Domains[domain]
	return authID, ok
}

// PutCredentials stores a bundle under authID and points every given domain
// at it, as a single unit, then schedules a durable write.
func (s *Store) PutCredentials(authID string, creds Credentials, domains []string) error {
	s.mu.Lock()
	s.rec.Auth[authID] = creds
	for _, domain := range domains {
		s.rec.Domains[domain] = authID
	}
	s.mu.Unlock()
	return s.Save()
}

// ReplaceCredentials atomically installs a renewed bundle: the new bundle is
// stored, every given domain is repointed to it, and the superseded bundle is
// removed, all in one critical section.
func (s *Store) ReplaceCredentials(oldID, newID string, creds Credentials, domains []string) error {
	s.mu.Lock()
	s.rec.Auth[newID] = creds
	for _, domain := range domains {
		s.rec.Domains[domain] = newID
	}
	delete(s.rec.Auth, oldID)
	s.mu.Unlock()
	return s.Save()
}

// DeleteCredentials removes the bundle stored under authID together with
// every domain mapping that points at it. It reports the removed domains and
// whether a bundle existed.
func (s *Store) DeleteCredentials(authID string) ([]string, bool) {
	s.mu.Lock()
	_, ok := s.rec.Auth[authID]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	delete(s.rec.Auth, authID)

	var removed []string
	for domain, id := range s.rec.Domains {
		if id == authID {
			delete(s.rec.Domains, domain)
			removed = append(removed, domain)
		}
	}
	s.mu.Unlock()

	_ = s.Save()
	return removed, true
}

// Get returns a copy of the named section. Unknown sections fail with
// ErrInvalidSection.
func (s *Store) Get(section Section) (any, error) {
	switch section {
	case SectionAccount:
		acc, ok := s.Account()
		if !ok {
			return nil, nil
		}
		return acc, nil
	case SectionDomains:
		return s.Domains(), nil
	case SectionAuth:
		return s.Auth(), nil
	default:
		return nil, ErrInvalidSection
	}
}

// Set replaces the named section wholesale and schedules a durable write.
// Unknown sections fail with ErrInvalidSection; a value of the wrong type
// for the section fails with ErrInvalidValue.
func (s *Store) Set(section Section, value any) error {
	switch section {
	case SectionAccount:
		acc, ok := value.(Account)
		if !ok {
			return ErrInvalidValue
		}
		return s.SetAccount(acc)
	case SectionDomains:
		domains, ok := value.(map[string]string)
		if !ok {
			return ErrInvalidValue
		}
		s.mu.Lock()
		s.rec.Domains = maps.Clone(domains)
		s.rec.normalize()
		s.mu.Unlock()
		return s.Save()
	case SectionAuth:
		auth, ok := value.(map[string]Credentials)
		if !ok {
			return ErrInvalidValue
		}
		s.mu.Lock()
		s.rec.Auth = maps.Clone(auth)
		s.rec.normalize()
		s.mu.Unlock()
		return s.Save()
	default:
		return ErrInvalidSection
	}
}

// Save schedules a debounced durable write of the full current state. While
// a write is already scheduled the call is a no-op; the existing timer is
// not reset. A failure of the previous background write is returned here
// (and cleared), so write errors surface on the Save call that follows them.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.writeErr
	s.writeErr = nil

	if !s.pending {
		s.pending = true
		s.timer = time.AfterFunc(s.debounce, s.flushTimer)
	}
	return err
}

// flushTimer runs on timer expiry and performs the deferred write. The
// write error is kept for the next Save caller; there is no automatic retry.
func (s *Store) flushTimer() {
	s.mu.Lock()
	s.pending = false
	s.timer = nil
	snapshot := s.rec.clone()
	s.mu.Unlock()

	if err := writeFile(s.path, snapshot); err != nil {
		s.log.Error("deferred state write failed", logger.Component("certstore"), logger.Error(err))
		s.mu.Lock()
		s.writeErr = errors.Join(ErrWriteFailed, err)
		s.mu.Unlock()
		return
	}
	s.log.Debug("certificate state persisted", logger.Component("certstore"), slog.String("path", s.path))
}

// Flush cancels any pending debounced write and persists the current state
// synchronously. Call it on shutdown so the last mutations are not lost to
// the debounce window.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.writeErr = nil
	snapshot := s.rec.clone()
	s.mu.Unlock()

	if err := writeFile(s.path, snapshot); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}

// Close flushes pending state. The store remains usable afterwards, but
// callers are expected to treat Close as the end of its lifetime.
func (s *Store) Close() error {
	return s.Flush()
}

// writeFile rewrites the full state file through a temp file and rename so a
// crash mid-write cannot leave a truncated state file behind.
func writeFile(path string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
