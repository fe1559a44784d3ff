package certward_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-acme/lego/v4/certificate"
	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	certward "github.com/dmitrymomot/certward"
	"github.com/dmitrymomot/certward/core/challenge"
	"github.com/dmitrymomot/certward/core/lifecycle"
)

// stubClient is a minimal ACME client for wiring tests. Issuance publishes a
// challenge token through the provider, then signs a self-signed certificate
// with the requested key.
type stubClient struct {
	provider legochallenge.Provider
	// midIssuance runs between challenge publication and cleanup.
	midIssuance func()
}

func stubFactory(c *stubClient) lifecycle.ClientFactory {
	return func(*lego.Config) (lifecycle.ACMEClient, error) {
		return c, nil
	}
}

func (c *stubClient) Register(registration.RegisterOptions) (*registration.Resource, error) {
	return &registration.Resource{URI: "https://ca.test/acct/1"}, nil
}

func (c *stubClient) TermsOfServiceURL() string { return "https://ca.test/tos" }

func (c *stubClient) SetHTTP01Provider(p legochallenge.Provider) error {
	c.provider = p
	return nil
}

func (c *stubClient) Obtain(req certificate.ObtainRequest) (*certificate.Resource, error) {
	for _, domain := range req.Domains {
		token := "token-" + domain
		if c.provider != nil {
			if err := c.provider.Present(domain, token, token+".auth"); err != nil {
				return nil, err
			}
			if c.midIssuance != nil {
				c.midIssuance()
			}
			defer func(domain, token string) {
				_ = c.provider.CleanUp(domain, token, token+".auth")
			}(domain, token)
		}
	}

	key, ok := req.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("stub: expected an rsa private key")
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: req.Domains[0]},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		DNSNames:              req.Domains,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}

	return &certificate.Resource{
		Domain:      req.Domains[0],
		Certificate: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		PrivateKey:  pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
	}, nil
}

func (c *stubClient) Revoke([]byte) error { return nil }

func newManager(t *testing.T) *certward.Manager {
	t.Helper()

	m, err := certward.New(certward.Config{
		StatePath:    filepath.Join(t.TempDir(), "state.json"),
		SaveDebounce: 10 * time.Millisecond,
	}, certward.WithClientFactory(stubFactory(&stubClient{})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNewRequiresStatePath(t *testing.T) {
	t.Parallel()

	_, err := certward.New(certward.Config{})
	assert.Error(t, err)
}

func TestManagerWiring(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	authID, err := m.Certify(context.Background(), lifecycle.CertifyRequest{
		Email:   "admin@example.com",
		Domains: []string{"x.test"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, authID)

	// Orchestrator methods are promoted onto the Manager.
	assert.Equal(t, []string{"x.test"}, m.Domains())

	cert, err := m.GetSecureContext("x.test")
	require.NoError(t, err)
	assert.NotNil(t, cert)

	cfg := m.TLSConfig()
	require.NotNil(t, cfg.GetCertificate)

	// The store handle survives a restart cycle.
	creds, ok := m.Store().CredentialsForDomain("x.test")
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", creds.Email)
}

func TestGetChallenge(t *testing.T) {
	t.Parallel()

	stub := &stubClient{}
	m, err := certward.New(certward.Config{
		StatePath: filepath.Join(t.TempDir(), "state.json"),
	}, certward.WithClientFactory(stubFactory(stub)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	_, ok := m.GetChallenge(challenge.WellKnownPrefix + "nope")
	assert.False(t, ok)

	// The published token is answerable while the issuance is in flight and
	// gone once it completes.
	var midAuth string
	var midOK bool
	stub.midIssuance = func() {
		midAuth, midOK = m.GetChallenge(challenge.WellKnownPrefix + "token-x.test")
	}

	_, err = m.Certify(context.Background(), lifecycle.CertifyRequest{
		Email:   "admin@example.com",
		Domains: []string{"x.test"},
	})
	require.NoError(t, err)

	require.True(t, midOK)
	assert.Equal(t, "token-x.test.auth", midAuth)

	_, ok = m.GetChallenge(challenge.WellKnownPrefix + "token-x.test")
	assert.False(t, ok)
}

func TestHTTPHandler(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	fallback := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	m.HTTPHandler(fallback).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, challenge.WellKnownPrefix+"missing", nil)
	m.HTTPHandler(nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("CERTWARD_STATE_PATH", filepath.Join(t.TempDir(), "state.json"))

	m, err := certward.NewFromEnv(certward.WithClientFactory(stubFactory(&stubClient{})))
	require.NoError(t, err)
	require.NoError(t, m.Close())
}
