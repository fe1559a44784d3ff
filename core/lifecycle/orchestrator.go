package lifecycle

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
	"github.com/google/uuid"

	"github.com/dmitrymomot/certward/core/certstore"
	"github.com/dmitrymomot/certward/core/challenge"
	"github.com/dmitrymomot/certward/core/logger"
	"github.com/dmitrymomot/certward/core/tlscache"
	"github.com/dmitrymomot/certward/pkg/async"
	"github.com/dmitrymomot/certward/pkg/keyutil"
)

// CertificateLifetime is the validity period assumed for every issued
// certificate. Expiry is stamped as issuance time plus this constant rather
// than parsed from the certificate, matching the CA's fixed lifetime.
const CertificateLifetime = 90 * 24 * time.Hour

// Orchestrator coordinates certificate issuance, renewal and revocation
// against the CA, updating the credential store and invalidating derived
// caches as bundles change. It owns no durable state itself; the store is
// the single source of truth.
type Orchestrator struct {
	store      *certstore.Store
	contexts   *tlscache.Cache
	challenges *challenge.Registry

	factory      ClientFactory
	directoryURL string
	rsaKeySize   int
	log          *slog.Logger
}

// CertifyRequest describes one certificate issuance.
type CertifyRequest struct {
	// Email is the CA account contact address. Required.
	Email string
	// Domains lists every name the certificate must cover. Required,
	// at least one entry.
	Domains []string
	// Subject carries extra certificate subject attributes. Optional.
	Subject certstore.Subject
	// AccountKeyPEM supplies the account key for first-time registration.
	// Ignored once an account exists; generated when empty.
	AccountKeyPEM string
	// DomainKeyPEM supplies the certificate key. Generated when empty.
	DomainKeyPEM string
	// RSAKeySize overrides the configured size for generated keys.
	RSAKeySize int
}

// RenewOptions overrides parts of the original issuance request during
// renewal. Zero fields keep the values stored with the old bundle.
type RenewOptions struct {
	Email         string
	Subject       certstore.Subject
	AccountKeyPEM string
	DomainKeyPEM  string
	RSAKeySize    int
}

// New wires an orchestrator to its collaborators. All three are required;
// dependencies are explicit, there is no shared module state.
func New(store *certstore.Store, contexts *tlscache.Cache, challenges *challenge.Registry, opts ...Option) (*Orchestrator, error) {
	if store == nil || contexts == nil || challenges == nil {
		return nil, errors.New("lifecycle: store, contexts and challenges are required")
	}

	o := &Orchestrator{
		store:        store,
		contexts:     contexts,
		challenges:   challenges,
		factory:      defaultClientFactory,
		directoryURL: lego.LEDirectoryProduction,
		rsaKeySize:   keyutil.DefaultRSAKeySize,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Certify obtains a certificate for the requested domains, registering a CA
// account first if none exists, and stores the resulting bundle under a
// fresh authorization id. The id is returned.
//
// A registered account is persisted as soon as registration succeeds; a
// later issuance failure does not roll it back, so a retry reuses it.
func (o *Orchestrator) Certify(ctx context.Context, req CertifyRequest) (string, error) {
	if len(req.Domains) == 0 {
		return "", errors.Join(ErrInvalidRequest, errors.New("at least one domain is required"))
	}
	if req.Email == "" {
		return "", errors.Join(ErrInvalidRequest, errors.New("email is required"))
	}

	authID, creds, err := o.obtain(ctx, req)
	if err != nil {
		return "", err
	}

	if err := o.store.PutCredentials(authID, creds, req.Domains); err != nil {
		// Failure of a previous deferred write; the new state is in memory
		// and scheduled, so log it rather than failing a completed issuance.
		o.log.Error("previous state write had failed", logger.Component("lifecycle"), logger.Error(err))
	}

	o.log.Info("certificate issued",
		logger.Component("lifecycle"),
		logger.Domains(req.Domains),
		logger.AuthID(authID),
		logger.Email(creds.Email))
	return authID, nil
}

// Renew reissues the credentials selected by the filter. For every selected
// authorization id the same domain set is certified again (email and subject
// carried over from the old bundle unless overridden), the old bundle is
// replaced atomically, and its cached TLS context is invalidated so fresh
// material is served immediately.
//
// Ids renew concurrently; the returned error joins every per-id failure.
func (o *Orchestrator) Renew(ctx context.Context, f Filter, opts *RenewOptions) error {
	ids, err := o.resolveFilter(f)
	if err != nil {
		return err
	}
	return o.renewMany(ctx, ids, opts)
}

// RenewID renews a single authorization id. It fails with ErrNoDomains,
// without mutating the store, when no domain maps to the id.
func (o *Orchestrator) RenewID(ctx context.Context, authID string, opts *RenewOptions) error {
	return o.renewOne(ctx, authID, opts)
}

// RenewAll renews every authorization id currently in the store. Renewals
// run concurrently; partial failures are collected, not aborted on.
func (o *Orchestrator) RenewAll(ctx context.Context, opts *RenewOptions) error {
	return o.renewMany(ctx, o.store.AuthIDs(), opts)
}

func (o *Orchestrator) renewMany(ctx context.Context, ids []string, opts *RenewOptions) error {
	futures := make([]*async.ExecFuture, 0, len(ids))
	for _, id := range ids {
		futures = append(futures, async.Exec(ctx, id, func(ctx context.Context, id string) error {
			return o.renewOne(ctx, id, opts)
		}))
	}
	return async.ExecJoin(futures...)
}

// renewOne fails fast, without touching the store, when no domain maps to
// the id anymore.
func (o *Orchestrator) renewOne(ctx context.Context, authID string, opts *RenewOptions) error {
	domains := o.store.DomainsFor(authID)
	if len(domains) == 0 {
		return errors.Join(ErrNoDomains, fmt.Errorf("authorization %q", authID))
	}

	old, ok := o.store.Credentials(authID)
	if !ok {
		return errors.Join(ErrNoCredentials, fmt.Errorf("authorization %q", authID))
	}

	req := CertifyRequest{
		Email:   old.Email,
		Domains: domains,
		Subject: old.Subject,
	}
	if opts != nil {
		if opts.Email != "" {
			req.Email = opts.Email
		}
		if opts.Subject != nil {
			req.Subject = opts.Subject
		}
		req.AccountKeyPEM = opts.AccountKeyPEM
		req.DomainKeyPEM = opts.DomainKeyPEM
		req.RSAKeySize = opts.RSAKeySize
	}

	newID, creds, err := o.obtain(ctx, req)
	if err != nil {
		return err
	}

	if err := o.store.ReplaceCredentials(authID, newID, creds, domains); err != nil {
		o.log.Error("previous state write had failed", logger.Component("lifecycle"), logger.Error(err))
	}
	// The superseded bundle must stop being served right away.
	o.contexts.Invalidate(authID)

	o.log.Info("certificate renewed",
		logger.Component("lifecycle"),
		logger.Domains(domains),
		logger.AuthID(newID))
	return nil
}

// Revoke revokes the credentials selected by the filter: the CA revocation
// is performed, then the bundle, its domain mappings and its cached TLS
// context are removed. Ids revoke concurrently with failures collected.
func (o *Orchestrator) Revoke(ctx context.Context, f Filter) error {
	ids, err := o.resolveFilter(f)
	if err != nil {
		return err
	}
	return o.revokeMany(ctx, ids)
}

// RevokeID revokes a single authorization id. It fails with ErrNoCredentials
// when the id has no stored bundle.
func (o *Orchestrator) RevokeID(ctx context.Context, authID string) error {
	return o.revokeOne(ctx, authID)
}

// RevokeAll revokes every authorization id currently in the store.
func (o *Orchestrator) RevokeAll(ctx context.Context) error {
	return o.revokeMany(ctx, o.store.AuthIDs())
}

func (o *Orchestrator) revokeMany(ctx context.Context, ids []string) error {
	futures := make([]*async.ExecFuture, 0, len(ids))
	for _, id := range ids {
		futures = append(futures, async.Exec(ctx, id, func(ctx context.Context, id string) error {
			return o.revokeOne(ctx, id)
		}))
	}
	return async.ExecJoin(futures...)
}

func (o *Orchestrator) revokeOne(ctx context.Context, authID string) error {
	creds, ok := o.store.Credentials(authID)
	if !ok {
		return errors.Join(ErrNoCredentials, fmt.Errorf("authorization %q", authID))
	}

	acc, ok := o.store.Account()
	if !ok {
		return ErrAccountRequired
	}
	accountKey, err := keyutil.ParseJWK(acc.Key)
	if err != nil {
		return errors.Join(ErrCertification, err)
	}

	client, err := o.newClient(&accountUser{
		email:        creds.Email,
		key:          accountKey,
		registration: &registration.Resource{URI: acc.ID},
	})
	if err != nil {
		return errors.Join(ErrCertification, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := client.Revoke([]byte(creds.Cert)); err != nil {
		return errors.Join(ErrCertification, err)
	}

	domains, _ := o.store.DeleteCredentials(authID)
	o.contexts.Invalidate(authID)

	o.log.Info("certificate revoked",
		logger.Component("lifecycle"),
		logger.Domains(domains),
		logger.AuthID(authID))
	return nil
}

// FilterCredentials evaluates a filter and returns the matching
// authorization ids.
func (o *Orchestrator) FilterCredentials(f Filter) ([]string, error) {
	return o.resolveFilter(f)
}

// Domains lists every domain with active credentials.
func (o *Orchestrator) Domains() []string {
	domains := o.store.Domains()
	out := make([]string, 0, len(domains))
	for domain := range domains {
		out = append(out, domain)
	}
	return out
}

// Credentials resolves a domain to its stored bundle.
func (o *Orchestrator) Credentials(domain string) (certstore.Credentials, bool) {
	return o.store.CredentialsForDomain(domain)
}

// obtain runs one issuance: account handling, domain key handling, the ACME
// flow with the challenge registry installed as HTTP-01 provider, and
// assembly of the credential bundle. It does not write the store.
func (o *Orchestrator) obtain(ctx context.Context, req CertifyRequest) (string, certstore.Credentials, error) {
	client, err := o.ensureAccount(ctx, req)
	if err != nil {
		return "", certstore.Credentials{}, err
	}

	domainKey, err := o.domainKey(req)
	if err != nil {
		return "", certstore.Credentials{}, errors.Join(ErrCertification, err)
	}

	if err := client.SetHTTP01Provider(o.challenges); err != nil {
		return "", certstore.Credentials{}, errors.Join(ErrCertification, err)
	}

	if err := ctx.Err(); err != nil {
		return "", certstore.Credentials{}, err
	}

	res, err := client.Obtain(certificate.ObtainRequest{
		Domains:    req.Domains,
		PrivateKey: domainKey,
		// Keep leaf and issuer chain separate in the stored bundle.
		Bundle: false,
	})
	if err != nil {
		return "", certstore.Credentials{}, errors.Join(ErrCertification, err)
	}

	keyPEM := string(res.PrivateKey)
	if keyPEM == "" {
		keyPEM, err = keyutil.EncodePrivatePEM(domainKey)
		if err != nil {
			return "", certstore.Credentials{}, errors.Join(ErrCertification, err)
		}
	}

	authID := uuid.NewString()
	creds := certstore.Credentials{
		Key:       keyPEM,
		Cert:      string(res.Certificate),
		CA:        string(res.IssuerCertificate),
		Email:     req.Email,
		Subject:   req.Subject,
		ExpiresAt: time.Now().Add(CertificateLifetime),
	}
	return authID, creds, nil
}

// ensureAccount returns a client bound to the stored account key, or
// registers a new account first. The account record is persisted as soon as
// registration succeeds.
func (o *Orchestrator) ensureAccount(ctx context.Context, req CertifyRequest) (ACMEClient, error) {
	if acc, ok := o.store.Account(); ok {
		key, err := keyutil.ParseJWK(acc.Key)
		if err != nil {
			return nil, errors.Join(ErrCertification, err)
		}
		client, err := o.newClient(&accountUser{
			email:        req.Email,
			key:          key,
			registration: &registration.Resource{URI: acc.ID},
		})
		if err != nil {
			return nil, errors.Join(ErrCertification, err)
		}
		return client, nil
	}

	accountKey, err := o.accountKey(req)
	if err != nil {
		return nil, errors.Join(ErrCertification, err)
	}

	user := &accountUser{email: req.Email, key: accountKey}
	client, err := o.newClient(user)
	if err != nil {
		return nil, errors.Join(ErrCertification, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.log.Info("registering new account", logger.Component("lifecycle"), logger.Email(req.Email))
	res, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, errors.Join(ErrCertification, err)
	}
	user.registration = res

	jwk, err := keyutil.MarshalJWK(accountKey)
	if err != nil {
		return nil, errors.Join(ErrCertification, err)
	}
	if err := o.store.SetAccount(certstore.Account{
		ID:        res.URI,
		Key:       jwk,
		Agreement: client.TermsOfServiceURL(),
		CreatedAt: time.Now(),
	}); err != nil {
		o.log.Error("previous state write had failed", logger.Component("lifecycle"), logger.Error(err))
	}

	return client, nil
}

func (o *Orchestrator) accountKey(req CertifyRequest) (crypto.PrivateKey, error) {
	if req.AccountKeyPEM != "" {
		return keyutil.ParsePrivatePEM(req.AccountKeyPEM)
	}
	key, err := keyutil.GenerateRSA(o.keySize(req))
	if err != nil {
		return nil, err
	}
	o.log.Debug("generated account key pair", logger.Component("lifecycle"))
	return key, nil
}

func (o *Orchestrator) domainKey(req CertifyRequest) (crypto.PrivateKey, error) {
	if req.DomainKeyPEM != "" {
		return keyutil.ParsePrivatePEM(req.DomainKeyPEM)
	}
	key, err := keyutil.GenerateRSA(o.keySize(req))
	if err != nil {
		return nil, err
	}
	o.log.Debug("generated domain key pair", logger.Component("lifecycle"))
	return key, nil
}

func (o *Orchestrator) keySize(req CertifyRequest) int {
	if req.RSAKeySize > 0 {
		return req.RSAKeySize
	}
	return o.rsaKeySize
}

func (o *Orchestrator) newClient(user *accountUser) (ACMEClient, error) {
	cfg := lego.NewConfig(user)
	cfg.CADirURL = o.directoryURL
	return o.factory(cfg)
}
