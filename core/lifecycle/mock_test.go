package lifecycle_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-acme/lego/v4/certificate"
	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/dmitrymomot/certward/core/lifecycle"
)

// mockACMEClient is a test implementation of lifecycle.ACMEClient. Obtain
// signs a self-signed certificate with the requested private key and walks
// the HTTP-01 provider through publish and cleanup for every domain, the way
// a real issuance would.
type mockACMEClient struct {
	mu         sync.Mutex
	registered int
	revoked    [][]byte
	provider   legochallenge.Provider

	registerErr error
	revokeErr   error
	// failDomains makes Obtain fail for any request containing one of them.
	failDomains map[string]bool

	// tokensSeen records how many tokens were published during issuances.
	tokensSeen int
}

func newMockClient() *mockACMEClient {
	return &mockACMEClient{failDomains: make(map[string]bool)}
}

// factory returns a lifecycle.ClientFactory handing out this mock.
func (m *mockACMEClient) factory() lifecycle.ClientFactory {
	return func(*lego.Config) (lifecycle.ACMEClient, error) {
		return m, nil
	}
}

func (m *mockACMEClient) Register(registration.RegisterOptions) (*registration.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.registered++
	return &registration.Resource{URI: "https://ca.test/acct/1"}, nil
}

func (m *mockACMEClient) TermsOfServiceURL() string {
	return "https://ca.test/tos"
}

func (m *mockACMEClient) SetHTTP01Provider(provider legochallenge.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
	return nil
}

func (m *mockACMEClient) Obtain(req certificate.ObtainRequest) (*certificate.Resource, error) {
	m.mu.Lock()
	provider := m.provider
	m.mu.Unlock()

	// Simulate the challenge round-trip before issuing.
	for _, domain := range req.Domains {
		token := "token-" + domain
		if provider != nil {
			if err := provider.Present(domain, token, token+".auth"); err != nil {
				return nil, err
			}
			m.mu.Lock()
			m.tokensSeen++
			m.mu.Unlock()
			defer func(domain, token string) {
				_ = provider.CleanUp(domain, token, token+".auth")
			}(domain, token)
		}

		if m.failDomains[domain] {
			return nil, fmt.Errorf("validation failed for %s", domain)
		}
	}

	key, ok := req.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("mock: expected an rsa private key")
	}

	certPEM, err := selfSign(key, req.Domains)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return &certificate.Resource{
		Domain:      req.Domains[0],
		Certificate: certPEM,
		PrivateKey:  keyPEM,
	}, nil
}

func (m *mockACMEClient) Revoke(cert []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revoked = append(m.revoked, cert)
	return nil
}

func (m *mockACMEClient) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered
}

func (m *mockACMEClient) Revoked() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked
}

func (m *mockACMEClient) TokensSeen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokensSeen
}

func selfSign(key *rsa.PrivateKey, domains []string) ([]byte, error) {
	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: domains[0]},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              domains,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}
